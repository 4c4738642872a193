package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/parlay-engine/internal/models"
)

// ErrValidation wraps every rejection produced by DataValidator
var ErrValidation = errors.New("validation failed")

// DataValidator validates inbound odds snapshots and game results before they
// reach the repositories
type DataValidator struct {
	validate *validator.Validate
}

// NewDataValidator creates a validator with the cross-field rules registered
func NewDataValidator() *DataValidator {
	v := validator.New()
	v.RegisterStructValidation(validateOddsSnapshot, models.OddsSnapshot{})
	v.RegisterStructValidation(validateGameResult, models.GameResult{})
	return &DataValidator{validate: v}
}

// ValidateOdds validates one odds snapshot
func (v *DataValidator) ValidateOdds(snapshot *models.OddsSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: odds snapshot is nil", ErrValidation)
	}
	return v.check(snapshot, "odds "+snapshot.GameID)
}

// ValidateGameResult validates one game result
func (v *DataValidator) ValidateGameResult(result *models.GameResult) error {
	if result == nil {
		return fmt.Errorf("%w: game result is nil", ErrValidation)
	}
	return v.check(result, "result "+result.GameID)
}

func (v *DataValidator) check(s interface{}, subject string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %s: %v", ErrValidation, subject, err)
	}

	problems := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s: %s", ErrValidation, subject, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s has invalid value %v", fe.Field(), fe.Value())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	case "line_required":
		return fmt.Sprintf("%s market requires a line", fe.Value())
	case "line_forbidden":
		return "h2h market must not carry a line"
	case "selection":
		return fmt.Sprintf("selection %v is not valid for the market", fe.Value())
	case "final_scores":
		return "final game requires both scores"
	case "final_status":
		return fmt.Sprintf("status %v contradicts the final flag", fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func validateOddsSnapshot(sl validator.StructLevel) {
	o := sl.Current().Interface().(models.OddsSnapshot)

	if o.MarketType.NeedsLine() && o.Line == nil {
		sl.ReportError(o.MarketType, "Line", "Line", "line_required", "")
	}
	if o.MarketType == models.MarketTypeH2H && o.Line != nil {
		sl.ReportError(o.Line, "Line", "Line", "line_forbidden", "")
	}
	if o.MarketType != "" && o.Outcome != "" {
		if err := o.Outcome.ValidFor(o.MarketType); err != nil {
			sl.ReportError(o.Outcome, "Outcome", "Outcome", "selection", "")
		}
	}
}

func validateGameResult(sl validator.StructLevel) {
	g := sl.Current().Interface().(models.GameResult)

	if g.Final && (g.HomeScore == nil || g.AwayScore == nil) {
		sl.ReportError(g.Final, "Final", "Final", "final_scores", "")
	}

	// A cancelled game with a final score is ambiguous, and a final status
	// without the flag means the provider sent a partial update.
	switch {
	case g.Final && g.Status != models.GameStatusFinal:
		sl.ReportError(g.Status, "Status", "Status", "final_status", "")
	case !g.Final && g.Status == models.GameStatusFinal:
		sl.ReportError(g.Status, "Status", "Status", "final_status", "")
	}
}

// Package main provides the CLI entry point for the parlay engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-engine/internal/calibration"
	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/correlation"
	"github.com/yourusername/parlay-engine/internal/database"
	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/probability"
	"github.com/yourusername/parlay-engine/internal/repository"
)

var (
	// Version information (set by ldflags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

var rootCmd = &cobra.Command{
	Use:   "parlay-engine",
	Short: "Parlay probability and settlement engine",
	Long: `Scores candidate legs, computes calibrated parlay hit probabilities,
settles legs and parlays from game results and retrains calibration bins.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return err
		}
		return setupDependencies(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parlay-engine %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Debug("Configuration loaded")
	return nil
}

func setupDependencies(ctx context.Context) error {
	var err error
	db, err = database.Initialize(ctx, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	return nil
}

// newCalibrationCache builds the bin cache shared by probability and training
func newCalibrationCache() *calibration.Cache {
	return calibration.NewCache(repos.CalibrationBin, cfg.Calibration.MinSamples, cfg.Calibration.CacheTTL(), appLog)
}

func newTrainer(cache *calibration.Cache) *calibration.Trainer {
	window := cfg.Calibration.TrainingWindowDays
	return calibration.NewTrainer(
		repos.CalibrationBin,
		repos.TrainingData,
		cache,
		cfg.Calibration.NumBins,
		time.Duration(window)*24*time.Hour,
		appLog,
	)
}

func newProbabilityService(cache *calibration.Cache) (*probability.Service, error) {
	table, err := correlation.TableFromConfig(cfg.Correlation)
	if err != nil {
		return nil, err
	}
	calc := probability.NewCalculator(correlation.NewModel(table))
	return probability.NewService(calc, cache, repos.Parlay, appLog), nil
}

func main() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(ingestCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

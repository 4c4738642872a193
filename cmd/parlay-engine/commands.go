package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-engine/internal/feed"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/scheduler"
	"github.com/yourusername/parlay-engine/internal/scoring"
	"github.com/yourusername/parlay-engine/internal/scoring/remote"
	"github.com/yourusername/parlay-engine/internal/service"
	"github.com/yourusername/parlay-engine/internal/settlement"
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run one settlement pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		publisher := feed.NewPublisher(cfg.Feed, appLog)
		defer publisher.Close()

		orchestrator := settlement.NewOrchestrator(
			repos,
			settlement.NewGrader(cfg.Settlement.TieSports),
			publisher,
			nil,
			settlement.OptionsFromConfig(cfg.Settlement),
			appLog,
		)

		run, err := orchestrator.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("settlement run failed: %w", err)
		}
		printRun(run)
		return nil
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Retrain calibration bins from resolved predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sched := scheduler.NewScheduler(nil, repos.JobRun, appLog)
		run := sched.RunCalibration(cmd.Context(), newTrainer(nil))
		printRun(run)
		if !run.Success {
			return fmt.Errorf("calibration failed: %s", run.ErrorSnippet)
		}
		return nil
	},
}

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [job]",
	Short: "Show recent job runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs := []string{scheduler.SettlementJob, scheduler.CalibrationJob}
		if len(args) == 1 {
			jobs = args
		}

		for _, job := range jobs {
			runs, err := repos.JobRun.GetRecent(cmd.Context(), job, statusLimit)
			if err != nil {
				return fmt.Errorf("failed to load %s runs: %w", job, err)
			}
			fmt.Printf("=== %s ===\n", job)
			if len(runs) == 0 {
				fmt.Println("  no runs recorded")
				continue
			}
			for _, run := range runs {
				printRun(*run)
			}
		}
		return nil
	},
}

var (
	buildGames   []string
	buildLegs    int
	buildProfile string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and store a parlay from the latest odds of the given games",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		registry := scoring.NewRegistry()
		registry.SetFallback(scoring.ConsensusScorer{})
		if cfg.ModelService.GRPCAddress != "" {
			client, err := remote.NewClient(&cfg.ModelService, appLog)
			if err != nil {
				return fmt.Errorf("failed to create model client: %w", err)
			}
			defer client.Close()
			registry.SetFallback(client)
		}

		cache := newCalibrationCache()
		probabilities, err := newProbabilityService(cache)
		if err != nil {
			return fmt.Errorf("invalid correlation config: %w", err)
		}

		scorer := scoring.NewScorer(registry, appLog, cfg.Scoring.MaxConcurrency, cfg.Scoring.MinEdge)
		builder := service.NewParlayBuilder(repos, db, scorer, probabilities, cfg.Builder, appLog)

		result, err := builder.Build(ctx, service.BuildRequest{
			GameIDs:     buildGames,
			NumLegs:     buildLegs,
			RiskProfile: models.RiskProfile(strings.ToLower(buildProfile)),
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var ingestBatchSize int

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Validate and store odds and game results from a JSON batch file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewIngestionService(
			repos.Odds,
			repos.GameResult,
			service.NewDataValidator(),
			service.NewDataNormalizer(),
			appLog,
			ingestBatchSize,
		)

		m, err := svc.IngestFile(cmd.Context(), args[0])
		if m != nil {
			fmt.Println(m.String())
		}
		return err
	},
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Runs to show per job")

	buildCmd.Flags().StringSliceVarP(&buildGames, "games", "g", nil, "Game IDs to build from (comma separated)")
	buildCmd.Flags().IntVarP(&buildLegs, "legs", "l", 3, "Number of legs")
	buildCmd.Flags().StringVarP(&buildProfile, "profile", "p", string(models.RiskProfileBalanced), "Risk profile: conservative, balanced or degen")
	_ = buildCmd.MarkFlagRequired("games")

	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "Odds rows per insert batch (0 uses the default)")
}

func printRun(run models.JobRun) {
	status := "ok"
	if !run.Success {
		status = "FAILED"
	}
	fmt.Printf("  %s  %-11s %-6s processed=%d failed=%d skipped=%d duration=%s\n",
		run.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		run.JobName,
		status,
		run.Processed,
		run.Failed,
		run.Skipped,
		run.Duration,
	)
	if run.ErrorSnippet != "" {
		fmt.Printf("    error: %s\n", run.ErrorSnippet)
	}
}

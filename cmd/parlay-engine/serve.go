package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-engine/internal/feed"
	"github.com/yourusername/parlay-engine/internal/health"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/scheduler"
	"github.com/yourusername/parlay-engine/internal/settlement"
)

const (
	jobHistory = 20
	staleTicks = 3
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled settlement and calibration with health endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Parlay engine starting")

	metrics.InitRegistry()

	cache := newCalibrationCache()
	if err := cache.Refresh(ctx); err != nil {
		appLog.WithError(err).Warn("Initial calibration load failed, using identity calibration")
	}
	trainer := newTrainer(cache)

	publisher := feed.NewPublisher(cfg.Feed, appLog)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close feed publisher")
		}
	}()

	tracker := scheduler.NewJobStatusTracker(jobHistory)
	orchestrator := settlement.NewOrchestrator(
		repos,
		settlement.NewGrader(cfg.Settlement.TieSports),
		publisher,
		tracker,
		settlement.OptionsFromConfig(cfg.Settlement),
		appLog,
	)

	sched := scheduler.NewScheduler(tracker, repos.JobRun, appLog)
	// a run past its soft budget still gets time to release claims
	if err := sched.ScheduleSettlement(cfg.Settlement.Schedule, orchestrator, 2*cfg.Settlement.MaxRunDuration()); err != nil {
		return err
	}
	if err := sched.ScheduleCalibration(cfg.Calibration.RetrainSchedule, trainer, cfg.Calibration.RetrainInterval()); err != nil {
		return err
	}

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		Logger:      appLog,
		DB:          db,
		Checks: map[string]health.Check{
			"scheduler": func(context.Context) error {
				if !sched.IsRunning() {
					return errors.New("scheduler is not running")
				}
				return nil
			},
		},
		Jobs:       tracker,
		StaleAfter: make(map[string]time.Duration),
	}
	for _, job := range []string{scheduler.SettlementJob, scheduler.CalibrationJob} {
		if every, ok := sched.Interval(job); ok {
			// a few missed ticks before the job is reported stale
			healthCfg.StaleAfter[job] = staleTicks * every
		}
	}
	healthServer := health.NewServer(healthCfg)
	if cfg.Metrics.Enabled {
		if healthServer.Port() == strconv.Itoa(cfg.Metrics.Port) {
			healthCfg.Metrics = metrics.Handler()
			healthCfg.MetricsPath = cfg.Metrics.Path
			healthServer = health.NewServer(healthCfg)
		} else {
			health.ServeMetrics(ctx, cfg.Metrics.Port, cfg.Metrics.Path, metrics.Handler(), appLog)
		}
	}
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	healthServer.SetReady(true)

	appLog.WithField("next_runs", sched.NextRuns()).Info("Parlay engine running")

	<-ctx.Done()
	appLog.Info("Shutdown signal received, initiating graceful shutdown...")
	healthServer.SetReady(false)

	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}

	// let the servers drain on the cancelled context
	time.Sleep(500 * time.Millisecond)
	appLog.Info("Parlay engine shut down successfully")
	return nil
}

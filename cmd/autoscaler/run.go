package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/cku-autoscaler/api"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autoscaler for every configured cluster",
	RunE:  runAutoscaler,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide but never resize")
}

func runAutoscaler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Autoscaling.DryRun = true
	}

	logger.Infof("Starting %s in %s mode (%d clusters, dry_run=%t)",
		cfg.App.Name, cfg.App.Mode, len(cfg.Autoscaling.Clusters), cfg.Autoscaling.DryRun)

	m := metrics.Get()

	coll := newCollector(cfg, m)
	defer coll.Close()
	scal := newScaler(cfg)
	defer scal.Close()

	healthCtx, healthCancel := context.WithTimeout(context.Background(), cfg.Confluent.Timeout)
	if err := coll.HealthCheck(healthCtx); err != nil {
		logger.Warnf("Telemetry API health check failed: %v", err)
	}
	healthCancel()

	orch, err := orchestrator.New(cfg, m)
	if err != nil {
		return err
	}
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	for _, clusterID := range cfg.Autoscaling.Clusters {
		cluster := models.NewCluster(clusterID, cfg.Confluent.Environment)
		if err := orch.StartCluster(cluster, coll, scal); err != nil {
			return fmt.Errorf("cluster %s: %w", clusterID, err)
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	var server *api.Server
	errChan := make(chan error, 1)
	if cfg.API.Enabled {
		server = api.NewServer(cfg, orch, m)
		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("API shutdown error: %v", err)
		}
	}

	logger.Info("Autoscaler stopped gracefully")
	return nil
}

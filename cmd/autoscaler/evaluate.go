package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/metrics"
	"github.com/OldStager01/cku-autoscaler/internal/orchestrator"
	"github.com/OldStager01/cku-autoscaler/pkg/models"
	"github.com/OldStager01/cku-autoscaler/pkg/validation"
)

var evaluateClusters []string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one dry-run cycle per cluster and print the decisions as JSON",
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringSliceVar(&evaluateClusters, "cluster", nil, "cluster id(s) to evaluate (defaults to autoscaling.clusters)")
}

type evaluation struct {
	ClusterID string                  `json:"cluster_id"`
	Decision  *models.ScalingDecision `json:"decision,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Autoscaling.DryRun = true

	// Keep stdout clean for the JSON report
	logger.SetOutput(os.Stderr)

	clusters := cfg.Autoscaling.Clusters
	if len(evaluateClusters) > 0 {
		if err := validation.ValidateClusterIDs(evaluateClusters); err != nil {
			return err
		}
		clusters = evaluateClusters
	}

	m := metrics.New()
	coll := newCollector(cfg, m)
	defer coll.Close()
	scal := newScaler(cfg)
	defer scal.Close()

	orch, err := orchestrator.New(cfg, m)
	if err != nil {
		return err
	}
	defer orch.Stop()

	results := make([]evaluation, 0, len(clusters))
	var failed bool
	for _, clusterID := range clusters {
		result := evaluation{ClusterID: clusterID}

		cluster := models.NewCluster(clusterID, cfg.Confluent.Environment)
		if _, err := orch.AddCluster(cluster, coll, scal); err != nil {
			return err
		}

		decision, err := orch.RunOnce(cmd.Context(), clusterID)

		if err != nil {
			result.Error = err.Error()
			failed = true
		}
		result.Decision = decision
		results = append(results, result)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	if failed {
		return fmt.Errorf("one or more clusters could not be evaluated")
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/internal/simulator"
	"github.com/OldStager01/cku-autoscaler/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "simulator server port")
	logLevel := flag.String("log-level", "info", "log level")
	apiKey := flag.String("api-key", "", "basic auth key required on the Confluent routes (disabled when empty)")
	apiSecret := flag.String("api-secret", "", "basic auth secret required on the Confluent routes")
	environment := flag.String("environment", "env-sim", "environment id reported for simulated clusters")
	provisionTime := flag.Duration("provision-time", 2*time.Minute, "delay before a resize takes effect")
	clusters := flag.String("clusters", "", "comma separated cluster ids to create at startup")
	cku := flag.Int("cku", 2, "initial CKU count for startup clusters")
	demand := flag.Float64("demand", 1.0, "base demand in CKU-equivalents for startup clusters")
	pattern := flag.String("pattern", "steady", "load pattern: steady, daily, weekly, random, gradual_rise, sine_wave")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting Confluent Cloud simulator")

	sim := simulator.New(simulator.Config{
		Port:          *port,
		APIKey:        *apiKey,
		APISecret:     *apiSecret,
		Environment:   *environment,
		ProvisionTime: *provisionTime,
	})

	for _, id := range strings.Split(*clusters, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := validation.ValidateClusterID(id); err != nil {
			return err
		}
		sim.AddCluster(id, simulator.ClusterSimConfig{
			CKU:           *cku,
			BaseDemand:    *demand,
			Variance:      0.05,
			ProvisionTime: *provisionTime,
			Pattern:       simulator.ParsePattern(*pattern, time.Now()),
		})
	}

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sim.Stop(ctx)
}

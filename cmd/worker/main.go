package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"passport-portal/internal/config"
	"passport-portal/internal/logging"
	"passport-portal/internal/metrics"
	"passport-portal/internal/storage"
	appTemporal "passport-portal/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New("worker", cfg)

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger.Named("temporal"),
	})
	if err != nil {
		logger.Error("connect temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Store:   store,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	// Applied and refused counters live here, so the worker serves its own
	// scrape endpoint on the HTTP port.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.HTTPPort, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics endpoint stopped", "error", err)
		}
	}()

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.ApplicationLifecycleWorkflow, workflow.RegisterOptions{Name: appTemporal.ApplicationLifecycleWorkflowName})
	w.RegisterActivity(activities.ApplyStatusChangeActivity)
	w.RegisterActivity(activities.RecordRefusedTransitionActivity)

	logger.Info("worker running", "task_queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
}

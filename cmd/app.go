package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielolaszy/jiraflow/internal/config"
	"github.com/danielolaszy/jiraflow/internal/jira"
	"github.com/danielolaszy/jiraflow/internal/logging"
	"github.com/danielolaszy/jiraflow/internal/nodes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// flagBindings maps configuration keys to the command-line flags that
// override them. Flags missing from a command are skipped.
var flagBindings = map[string]string{
	"log.level":                 "log-level",
	"metrics.addr":              "metrics-addr",
	"jira.insecure_skip_verify": "insecure",
	"search.jql":                "jql",
	"search.page_size":          "page-size",
}

// app holds everything a command needs to run nodes.
type app struct {
	cfg      *config.Config
	registry *nodes.Registry
	deps     nodes.Deps
	metrics  *prometheus.Registry
}

// setup loads the configuration and wires the Jira client, the node registry
// and the metrics registry.
func setup(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	for key, name := range flagBindings {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logging.Setup(cmd.ErrOrStderr(), logging.LogLevel(cfg.Log.Level), logging.LogFormat(cfg.Log.Format))

	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}
	logging.Debug("configuration loaded",
		"url", cfg.Jira.URL,
		"username", cfg.Jira.Username,
		"password", logging.MaskSensitive(cfg.Jira.Password),
		"page_size", cfg.Search.PageSize)
	if cfg.Jira.InsecureSkipVerify {
		logging.Warn("TLS certificate verification is disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := jira.NewMetrics(reg)

	exec, err := jira.NewExecutor(jira.ExecutorConfig{
		BaseURL:            cfg.Jira.URL,
		Username:           cfg.Jira.Username,
		Password:           cfg.Jira.Password,
		InsecureSkipVerify: cfg.Jira.InsecureSkipVerify,
		Timeout:            cfg.Jira.Timeout,
		Metrics:            metrics,
		Logger:             logging.For("executor"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jira executor: %w", err)
	}

	client := jira.NewClient(exec,
		jira.WithPageSize(cfg.Search.PageSize),
		jira.WithLogger(logging.For("jira")),
		jira.WithMetrics(metrics),
	)

	return &app{
		cfg:      cfg,
		registry: nodes.DefaultRegistry(),
		deps: nodes.Deps{
			Client: client,
			Status: nodes.MultiStatus{
				nodes.NewLogStatus(logging.For("status")),
				nodes.NewMetricsStatus(reg),
			},
			Logger: logging.For("nodes"),
		},
		metrics: reg,
	}, nil
}

// node creates a node of the named type from the loaded configuration.
func (a *app) node(typ string) (nodes.Node, error) {
	return a.registry.New(typ, a.deps, a.settings())
}

// serveMetrics exposes the metrics registry over HTTP when an address is
// configured. The returned function shuts the server down.
func (a *app) serveMetrics() func() {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("failed to stop metrics server", "error", err)
		}
	}
}

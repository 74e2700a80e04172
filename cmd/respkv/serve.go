package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raniellyferreira/respkv"
	"github.com/raniellyferreira/respkv/metrics"
)

// serveConfig is the resolved configuration of the serve command
type serveConfig struct {
	Addr           string
	ReplicaOf      string
	ErrorReplies   bool
	MetricsAddr    string
	LogLevel       respkv.Level
	Shards         int
	ConnectTimeout time.Duration
	ScriptTimeout  time.Duration
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a respkv node",
		Long: `Start a respkv node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RESPKV_<flag> (e.g. RESPKV_REPLICAOF="localhost 6379")`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := processServeConfig(cmd, v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	key := "port"
	cmd.Flags().Int(key, respkv.DefaultPort, "Port to listen on")

	key = "bind"
	cmd.Flags().String(key, "127.0.0.1", "Interface to listen on")

	key = "replicaof"
	cmd.Flags().String(key, "", `Run as a replica of the given master ("host port")`)

	key = "error-replies"
	cmd.Flags().Bool(key, false, "Answer malformed requests with an error reply instead of closing the connection")

	key = "metrics-addr"
	cmd.Flags().String(key, "", "Address to expose Prometheus metrics on (e.g. :9121), disabled when empty")

	key = "log-level"
	cmd.Flags().String(key, "info", "Level at which logs will be output (debug, info, error)")

	key = "shards"
	cmd.Flags().Int(key, 64, "Number of storage shards, rounded up to a power of two")

	key = "connect-timeout"
	cmd.Flags().Duration(key, 5*time.Second, "Timeout for connecting to the master")

	key = "script-timeout"
	cmd.Flags().Duration(key, 5*time.Second, "Longest time one EVAL may run before it is stopped")

	return cmd
}

// processServeConfig reads the command line flags and environment variables
// and converts them to a serveConfig
func processServeConfig(cmd *cobra.Command, v *viper.Viper) (*serveConfig, error) {
	// bind the flags to viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	port := v.GetInt("port")
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	level, err := respkv.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	cfg := &serveConfig{
		Addr:           net.JoinHostPort(v.GetString("bind"), strconv.Itoa(port)),
		ErrorReplies:   v.GetBool("error-replies"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       level,
		Shards:         v.GetInt("shards"),
		ConnectTimeout: v.GetDuration("connect-timeout"),
		ScriptTimeout:  v.GetDuration("script-timeout"),
	}

	if master := v.GetString("replicaof"); master != "" {
		cfg.ReplicaOf, err = respkv.ParseMasterAddr(master)
		if err != nil {
			return nil, fmt.Errorf("invalid --replicaof %q (expected \"host port\")", master)
		}
	}
	return cfg, nil
}

// runServe starts a node and blocks until ctx is done
func runServe(ctx context.Context, cfg *serveConfig) error {
	logger := respkv.NewLogger(cfg.LogLevel)

	opts := []respkv.Option{
		respkv.WithAddr(cfg.Addr),
		respkv.WithLogger(logger),
		respkv.WithErrorReplies(cfg.ErrorReplies),
		respkv.WithShardCount(cfg.Shards),
		respkv.WithConnectTimeout(cfg.ConnectTimeout),
	}
	if cfg.ReplicaOf != "" {
		opts = append(opts, respkv.WithReplicaOf(cfg.ReplicaOf))
	}
	if cfg.ScriptTimeout > 0 {
		opts = append(opts, respkv.WithScriptTimeout(cfg.ScriptTimeout))
	}

	var prom *metrics.Prometheus
	if cfg.MetricsAddr != "" {
		prom = metrics.NewPrometheus()
		opts = append(opts, respkv.WithMetrics(prom))
	}

	node, err := respkv.New(opts...)
	if err != nil {
		return err
	}
	defer node.Close()

	if err := node.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if prom != nil {
		go func() {
			logger.Info("Serving metrics", respkv.Field{Key: "addr", Value: cfg.MetricsAddr})
			errCh <- prom.Serve(ctx, cfg.MetricsAddr)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("metrics server: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/docklog/internal/confwatch"
	"github.com/good-yellow-bee/docklog/internal/dispatch"
	"github.com/good-yellow-bee/docklog/internal/engine"
	"github.com/good-yellow-bee/docklog/internal/health"
	"github.com/good-yellow-bee/docklog/internal/metrics"
	"github.com/good-yellow-bee/docklog/internal/models"
	"github.com/good-yellow-bee/docklog/internal/notifier"
	"github.com/good-yellow-bee/docklog/internal/state"
	"github.com/good-yellow-bee/docklog/pkg/config"
)

const defaultConfigPath = "/etc/" + appName + "/" + appName + ".yaml"

var configFile string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Tail host log files, classify lines and forward them",
	Long: appName + ` tails one or more host log files, reclassifies each
line by severity, republishes the result on stdout and optionally pushes
notifications for selected severities to an ntfy topic.`,
	RunE:         runForwarder,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check heartbeat freshness and exit non-zero when stale",
	Long: `healthcheck reads the heartbeat file a running forwarder rewrites
periodically and fails when it is missing or older than the allowed age
(HEALTH_MAX_AGE_SECONDS, default 180). Intended as a container health check.`,
	RunE:         runHealthcheck,
	SilenceUsage: true,
}

var healthFile string

func init() {
	defaultConfig := defaultConfigPath
	if env := os.Getenv("DOCKLOG_CONFIG"); env != "" {
		defaultConfig = env
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfig, "config file path")
	healthcheckCmd.Flags().StringVar(&healthFile, "file", "", "heartbeat file path (default: from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runForwarder(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sources, err := cfg.BuildSources()
	if err != nil {
		return fmt.Errorf("build sources: %w", err)
	}

	runID := uuid.New().String()

	// Records go to stdout; alert-eligible ones are additionally queued for
	// delivery. The queue variable is assigned below, before anything runs.
	var queue *notifier.Queue
	sink := dispatch.New(os.Stdout, func(rec models.Record) {
		if queue != nil {
			queue.Enqueue(rec)
		}
	})
	sink.SetLocation(cfg.Location())

	// Offset persistence is best effort: a broken store only costs resumption.
	var store *state.Store
	if cfg.General.StatePath != "" {
		store, err = state.Open(cfg.General.StatePath)
		if err != nil {
			log.Printf("[state] disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	eng := engine.New(sources, sink, store, engine.Options{
		Interval: cfg.Interval(),
		Location: cfg.Location(),
	})

	if cfg.Notification.Enabled {
		ntfy, err := notifier.NewNtfyNotifier(notifier.NtfyConfig{
			URL:           cfg.Notification.NtfyURL,
			AuthToken:     cfg.Notification.AuthToken,
			TitlePrefix:   cfg.Notification.TitlePrefix,
			AllowInsecure: cfg.Notification.AllowInsecure,
			AppName:       appName,
			RunID:         runID,
		})
		if err != nil {
			return fmt.Errorf("configure notifier: %w", err)
		}
		queue = notifier.NewQueue(ntfy, notifier.QueueConfig{
			Capacity:   cfg.Notification.QueueSize,
			RatePerMin: cfg.Notification.RatePerMin,
		}, eng.NotifyError)
	}

	heartbeat := health.NewWriter(cfg.General.HealthPath, cfg.Interval(), runID, eng.Status)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting %s %s (run %s), config=%s", appName, config.Version, runID, configFile)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return heartbeat.Run(ctx) })

	if queue != nil {
		g.Go(func() error { return queue.Run(ctx) })
	}

	if cfg.General.WatchConfig {
		watcher, err := confwatch.New(configFile)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		g.Go(func() error { return watcher.Run(ctx) })
		g.Go(func() error { return reloadLoop(ctx, watcher, eng) })
	}

	if cfg.General.MetricsListen != "" {
		srv := metrics.NewServer(cfg.General.MetricsListen)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run forwarder: %w", err)
	}

	log.Printf("forwarder stopped")
	return nil
}

// reloadLoop re-reads the configuration when the watcher signals a change
// and hands the new source set to the engine. An invalid new config is
// logged and ignored; the running config stays in force.
func reloadLoop(ctx context.Context, watcher *confwatch.Watcher, eng *engine.Engine) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Changes():
			cfg, err := LoadConfig(configFile)
			if err != nil {
				log.Printf("[reload] ignoring config change: %v", err)
				continue
			}
			sources, err := cfg.BuildSources()
			if err != nil {
				log.Printf("[reload] ignoring config change: %v", err)
				continue
			}
			eng.UpdateSources(sources)
		}
	}
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	path := healthFile
	if path == "" {
		if cfg, err := LoadConfig(configFile); err == nil {
			path = cfg.General.HealthPath
		} else {
			path = "/tmp/" + appName + ".health"
		}
	}

	maxAge := 180 * time.Second
	if env := os.Getenv("HEALTH_MAX_AGE_SECONDS"); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("invalid HEALTH_MAX_AGE_SECONDS: %q", env)
		}
		maxAge = time.Duration(n) * time.Second
	}

	if err := health.Check(path, maxAge); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"hqconsole/pkg/config"
	"hqconsole/pkg/hub"
	"hqconsole/pkg/logger"
)

var (
	hubDemo  bool
	hubRedis bool
)

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Run a development hub",
	Long: `Run a hub that consoles can connect to. Pushes come from the REST API
(POST /api/v1/push), from Redis pub/sub when redis_source is enabled, or from the
synthetic demo feeder.

Examples:
  # Run in foreground with demo data
  hqconsole hub --demo

  # Install as system service (requires sudo/admin privileges)
  sudo hqconsole hub install
  sudo hqconsole hub start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHubForeground()
	},
}

var hubRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hub in foreground or as service",
	Long:  `Run the hub. When installed as a service, this is called automatically.`,
	RunE:  runHubRun,
}

var hubServiceCmds = []struct {
	use, short string
	fn         func() error
}{
	{"install", "Install the hub as system service", InstallService},
	{"uninstall", "Uninstall the hub service", UninstallService},
	{"start", "Start the hub service", StartService},
	{"stop", "Stop the hub service", StopService},
	{"restart", "Restart the hub service", RestartService},
	{"status", "Check hub service status", StatusService},
}

func init() {
	hubCmd.PersistentFlags().BoolVar(&hubDemo, "demo", false, "enable the synthetic demo feeder")
	hubCmd.PersistentFlags().BoolVar(&hubRedis, "redis", false, "relay pushes from Redis pub/sub")

	hubCmd.AddCommand(hubRunCmd)
	for _, sc := range hubServiceCmds {
		fn := sc.fn
		hubCmd.AddCommand(&cobra.Command{
			Use:   sc.use,
			Short: sc.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := fn(); err != nil {
					return fmt.Errorf("%w\n\nNote: managing system services requires administrator privileges", err)
				}
				return nil
			},
		})
	}
	rootCmd.AddCommand(hubCmd)
}

// hubOptions builds the hub application graph.
func hubOptions() []fx.Option {
	opts := append(baseOptions(false),
		config.WatchModule,
		hub.Module,
	)
	if hubDemo || hubRedis {
		opts = append(opts, fx.Decorate(func(cfg *config.Config) *config.Config {
			if hubDemo {
				cfg.Hub.Demo = true
			}
			if hubRedis {
				cfg.Hub.RedisSource = true
			}
			return cfg
		}))
	}
	return append(opts, fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, cfg *config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info("Hub started",
					zap.String("host", cfg.Hub.Host),
					zap.Int("port", cfg.Hub.Port),
					zap.Bool("demo", cfg.Hub.Demo),
					zap.Bool("redis_source", cfg.Hub.RedisSource))
				log.Info("Press Ctrl+C to stop")
				return nil
			},
		})
	}))
}

func runHubRun(cmd *cobra.Command, args []string) error {
	isService := os.Getenv("INVOCATION_ID") != "" || // systemd
		os.Getenv("_") == "/bin/launchd" || // launchd
		os.Getenv("SERVICE_NAME") != "" // Windows service

	if isService {
		return RunService()
	}
	return runHubForeground()
}

func runHubForeground() error {
	app := fx.New(hubOptions()...)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

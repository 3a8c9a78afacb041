package logger_test

import (
	"go.uber.org/zap"

	"hqconsole/pkg/logger"
)

// Example_basicUsage demonstrates basic logger usage.
func Example_basicUsage() {
	cfg := logger.DefaultConfig()
	cfg.Development = true
	cfg.OutputPath = "" // console only

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Session connected",
		zap.String("url", "ws://localhost:9000/ws"),
		zap.Int("subscriptions", 3),
	)
}

// Example_withFields demonstrates a logger carrying per-component fields.
func Example_withFields() {
	cfg := logger.DefaultConfig()
	cfg.Development = true
	cfg.OutputPath = ""

	log, _ := logger.New(cfg)
	defer log.Sync()

	viewLog := log.WithFields(
		zap.String("component", "DatasourcesTable"),
		zap.String("address", "node-1"),
	)
	viewLog.Info("Mounted")
	viewLog.Info("Unmounted")
}

// Example_fileRotation demonstrates log file rotation configuration.
func Example_fileRotation() {
	cfg := logger.DefaultConfig()
	cfg.OutputPath = "/tmp/hqconsole-example.log"
	cfg.MaxSize = 10
	cfg.MaxBackups = 5
	cfg.MaxAge = 30
	cfg.Quiet = true

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("This goes to the rotated file only")
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/fx"

	"hqconsole/pkg/config"
)

// HubService implements service.Interface for the hub.
type HubService struct {
	app    *fx.App
	logger service.Logger
}

// NewHubService creates a new hub service.
func NewHubService() *HubService {
	return &HubService{}
}

// Start implements service.Interface.Start
func (s *HubService) Start(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Starting hqconsole hub service")
	}

	s.app = fx.New(hubOptions()...)
	if err := s.app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.app.Start(ctx)
}

// Stop implements service.Interface.Stop
func (s *HubService) Stop(svc service.Service) error {
	if s.logger != nil {
		s.logger.Info("Stopping hqconsole hub service")
	}

	if s.app == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.app.Stop(ctx); err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error stopping service: %v", err)
		}
		return err
	}
	return nil
}

// ServiceConfig returns the service configuration.
func ServiceConfig() *service.Config {
	args := []string{}
	path := configPath
	if path == "" {
		path = os.Getenv(config.ConfigPathEnv)
	}
	if path != "" {
		args = append(args, "-c", path)
	}
	args = append(args, "hub", "run")
	if hubDemo {
		args = append(args, "--demo")
	}
	if hubRedis {
		args = append(args, "--redis")
	}

	return &service.Config{
		Name:        "hqconsole-hub",
		DisplayName: "hqconsole Hub",
		Description: "Development hub for hqconsole operator consoles",
		Arguments:   args,
	}
}

func newService() (service.Service, *HubService, error) {
	prg := NewHubService()
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return s, prg, nil
}

// InstallService installs the hub as a system service.
func InstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Install(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}

	fmt.Println("Service installed successfully!")
	fmt.Println("Use 'hqconsole hub start' to start the service")
	return nil
}

// UninstallService uninstalls the hub service.
func UninstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstalling service: %w", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

// StartService starts the hub service.
func StartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	fmt.Println("Service started successfully!")
	return nil
}

// StopService stops the hub service.
func StopService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Stop(); err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	fmt.Println("Service stopped successfully!")
	return nil
}

// RestartService restarts the hub service.
func RestartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Restart(); err != nil {
		return fmt.Errorf("restarting service: %w", err)
	}

	fmt.Println("Service restarted successfully!")
	return nil
}

// StatusService prints the status of the hub service.
func StatusService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}

	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("getting service status: %w", err)
	}

	statusStr := "Unknown"
	switch status {
	case service.StatusRunning:
		statusStr = "Running"
	case service.StatusStopped:
		statusStr = "Stopped"
	}

	fmt.Printf("Service Status: %s\n", statusStr)
	return nil
}

// RunService runs the hub under the service manager.
func RunService() error {
	s, prg, err := newService()
	if err != nil {
		return err
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	if err := s.Run(); err != nil {
		logger.Error(err)
		return err
	}
	return nil
}

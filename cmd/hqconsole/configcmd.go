package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hqconsole/pkg/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the hqconsole configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Long: `Write a configuration file with default values. The format follows the
extension (.json, .yaml, .toml). Without a path, ~/.hqconsole/config.json is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration",
	RunE:  runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configInitPath(args)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := config.SaveToFile(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func configInitPath(args []string) (string, error) {
	if len(args) == 1 {
		return filepath.Abs(args[0])
	}
	if configPath != "" {
		return filepath.Abs(configPath)
	}
	home, err := config.GetConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.json"), nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := loader.GetConfigPath(); used != "" {
		fmt.Fprintf(out, "config: %s\n", used)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	fmt.Fprintf(out, "hub: %s\n", cfg.Transport.URL)
	fmt.Fprintln(out, "ok")
	return nil
}

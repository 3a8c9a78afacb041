package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"hqconsole/pkg/config"
)

// Example_saveAndLoad demonstrates saving and loading configuration.
func Example_saveAndLoad() {
	configPath := filepath.Join(os.TempDir(), "hqconsole-example-config.json")
	defer os.Remove(configPath)

	cfg := config.DefaultConfig()
	cfg.Transport.URL = "ws://hq.internal:18800/ws"

	loader := config.NewLoader()
	if err := loader.Save(configPath, cfg); err != nil {
		log.Fatal(err)
	}

	loaded, err := config.NewLoader().LoadFromFile(configPath)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(loaded.Transport.URL)
	// Output: ws://hq.internal:18800/ws
}

// Example_validation demonstrates configuration validation.
func Example_validation() {
	cfg := config.DefaultConfig()
	cfg.Transport.WriteQueue = 0

	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Println(err)
	}
	// Output: transport.write_queue: write_queue must be at least 1
}

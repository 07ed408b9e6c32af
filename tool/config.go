package tool

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/speeder2raw-web/types"
)

var ConfigPath = "console.yaml" // be aware that it can be changed, default to ./console.yaml

// DefaultAppConfig mirrors the paths the console scripts are installed at.
func DefaultAppConfig() types.AppConfig {
	return types.AppConfig{
		Host:                "0.0.0.0",
		Port:                3000,
		ConfigPath:          "/app/config.json",
		ScriptDir:           "/app",
		ClientOutDir:        "/app/client_out",
		WebDir:              "/app/www",
		LocalOnly:           false,
		ExportRatePerMinute: 30,
		ExportBurst:         5,
		PrivilegedPing:      false,
	}
}

// LoadConfig reads console settings from path, writing a default file when none exists.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultAppConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("console config not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new console config file: %s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read console config: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("console config path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read console config: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse console config: %v", err)
	}

	return cfg, nil
}

// ApplyOverrides layers CLI flags and the PORT environment variable over cfg.
// getenv is os.Getenv outside of tests.
func ApplyOverrides(cfg *types.AppConfig, flags types.Config, getenv func(string) string) {
	if flags.UseConfigPath != "" {
		cfg.ConfigPath = flags.UseConfigPath
	}
	if flags.UseScriptDir != "" {
		cfg.ScriptDir = flags.UseScriptDir
	}
	if flags.UseClientOutDir != "" {
		cfg.ClientOutDir = flags.UseClientOutDir
	}
	if flags.UseWebDir != "" {
		cfg.WebDir = flags.UseWebDir
	}
	if flags.UseLocalOnly {
		cfg.LocalOnly = true
	}
	if getenv != nil {
		if raw := getenv("PORT"); raw != "" {
			if port, err := strconv.Atoi(raw); err == nil && port > 0 {
				cfg.Port = port
			} else {
				DefaultLogger.Warnf("Ignoring invalid PORT %q", raw)
			}
		}
	}
	// flag wins over the environment
	if flags.UsePort > 0 {
		cfg.Port = flags.UsePort
	}
}

func writeConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

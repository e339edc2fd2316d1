package tool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tidewell/filegate/types"
)

var ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		Port:         53419,
		UploadFolder: "uploads",
		TempFolder:   "uploads/tmp",
		Namespace:    "filegate",
		IndexPath:    "uploads/index.json",
		AllowedExts:  []string{},
		MaxFileSize:  512 * 1024 * 1024,
		MaxRetries:   3,
		ScanEnabled:  false,
		Scanner: types.ScannerConfig{
			Command:        "clamscan",
			Args:           []string{"--no-summary", "--stdout"},
			Marker:         "FOUND",
			TimeoutSeconds: 120,
		},
		RateLimitPPS:   0,
		RateLimitBurst: 10,
	}
}

// LoadConfig reads the yaml config at path, creating it with defaults when
// it does not exist yet.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return cfg, nil
}

func writeConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

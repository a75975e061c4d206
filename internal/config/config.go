package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read from the working directory at startup. The file is optional.
const DefaultPath = "config.yaml"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Model    ModelConfig    `yaml:"model"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
	// ExposeInternalErrors returns raw error text in 500 responses.
	ExposeInternalErrors bool `yaml:"expose_internal_errors"`
}

type ArtifactConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
	// DownloadTimeout of zero means the download may block indefinitely.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type ModelConfig struct {
	SharedLibraryPath string `yaml:"shared_library_path"`
	InputName         string `yaml:"input_name"`
	OutputName        string `yaml:"output_name"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          "0.0.0.0:8000",
			AllowedOrigin: "*",
		},
		Artifact: ArtifactConfig{
			URL:  "https://aomodelstorage.blob.core.windows.net/models/model.onnx",
			Path: "model.onnx",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load overlays the YAML file at path onto Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if cfg.Artifact.URL == "" {
		return cfg, errors.New("artifact.url must not be empty")
	}
	if cfg.Artifact.Path == "" {
		return cfg, errors.New("artifact.path must not be empty")
	}
	if cfg.Artifact.DownloadTimeout < 0 {
		return cfg, errors.New("artifact.download_timeout must not be negative")
	}
	return cfg, nil
}

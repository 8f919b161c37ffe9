// Package config resolves process settings once at startup.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

const (
	EnvDev        = "dev"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Settings is built once in main and passed by value to whatever needs it.
type Settings struct {
	Env              string        `mapstructure:"env"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Workers          int           `mapstructure:"workers"`
	Reload           bool          `mapstructure:"reload"`
	RootDir          string        `mapstructure:"root_dir"`
	DataDir          string        `mapstructure:"data_dir"`
	ArtifactsDir     string        `mapstructure:"artifacts_dir"`
	ConfigDir        string        `mapstructure:"config_dir"`
	PredictCacheSize int           `mapstructure:"predict_cache_size"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s Settings) IsDev() bool { return s.Env == EnvDev }

// WatchArtifacts reports whether the server should hot reload artifacts.
// Reload is a development aid and is ignored in staging and production.
func (s Settings) WatchArtifacts() bool { return s.Reload && s.IsDev() }

// DatasetPath is the labelled CSV used by training and by the query client.
func (s Settings) DatasetPath() string {
	return filepath.Join(s.DataDir, "dataset.csv")
}

func (s Settings) Validate() error {
	switch s.Env {
	case EnvDev, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("unknown env %q (want %s, %s or %s)", s.Env, EnvDev, EnvStaging, EnvProduction)
	}
	if s.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.PredictCacheSize < 0 {
		return fmt.Errorf("predict_cache_size must not be negative, got %d", s.PredictCacheSize)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", s.RequestTimeout)
	}
	return nil
}

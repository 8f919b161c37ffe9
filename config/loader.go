package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "APP"

// Overrides are values given on the command line, keyed like Settings'
// mapstructure tags. They win over everything else.
type Overrides map[string]interface{}

// Load resolves settings with precedence: overrides > process env (APP_*) >
// .env > config/.env.<env> (dev and staging only) > defaults.
func Load(overrides Overrides) (Settings, error) {
	root, err := resolveRoot(overrides)
	if err != nil {
		return Settings{}, err
	}
	env := resolveEnv(overrides)

	v := viper.New()
	setDefaults(v, root)

	for _, path := range envFiles(root, env) {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Settings{}, fmt.Errorf("read env file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(stripPrefix(values)); err != nil {
			return Settings{}, fmt.Errorf("merge env file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for key, value := range overrides {
		v.Set(key, value)
	}
	v.Set("env", env)
	v.Set("root_dir", root)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	s.DataDir = resolveDir(root, s.DataDir)
	s.ArtifactsDir = resolveDir(root, s.ArtifactsDir)
	s.ConfigDir = resolveDir(root, s.ConfigDir)

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper, root string) {
	v.SetDefault("env", EnvDev)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8000)
	v.SetDefault("workers", 4)
	v.SetDefault("reload", false)
	v.SetDefault("root_dir", root)
	v.SetDefault("data_dir", "data")
	v.SetDefault("artifacts_dir", "artifacts")
	v.SetDefault("config_dir", "config")
	v.SetDefault("predict_cache_size", 1024)
	v.SetDefault("request_timeout", "30s")
}

func resolveEnv(overrides Overrides) string {
	if env, ok := overrides["env"].(string); ok && env != "" {
		return env
	}
	if env := os.Getenv(envPrefix + "_ENV"); env != "" {
		return env
	}
	return EnvDev
}

func resolveRoot(overrides Overrides) (string, error) {
	if root, ok := overrides["root_dir"].(string); ok && root != "" {
		return filepath.Abs(root)
	}
	if root := os.Getenv(envPrefix + "_ROOT_DIR"); root != "" {
		return filepath.Abs(root)
	}
	if root := findProjectRoot(); root != "" {
		return root, nil
	}
	return os.Getwd()
}

// envFiles lists env files from lowest to highest precedence. Production
// reads the process environment only.
func envFiles(root, env string) []string {
	var files []string
	switch env {
	case EnvDev:
		files = append(files, filepath.Join(root, "config", ".env.dev"))
	case EnvStaging:
		files = append(files, filepath.Join(root, "config", ".env.staging"))
	}
	return append(files, filepath.Join(root, ".env"))
}

// stripPrefix keeps APP_* entries and turns APP_DATA_DIR into data_dir.
func stripPrefix(values map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	prefix := envPrefix + "_"
	for key, value := range values {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out[strings.ToLower(strings.TrimPrefix(key, prefix))] = value
	}
	return out
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func resolveDir(root, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DirName   = ".tpr"
	FileName  = "config"
	FileType  = "toml"
	EnvPrefix = "TPR"
)

const (
	KeyAccountsPath    = "accounts.path"
	KeyCredentialsPath = "credentials.path"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyTopTierModels   = "routing.top_tier_models"
	KeyTopTierRules    = "routing.top_tier_rules"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Load reads config.toml from dir, or from ~/.tpr when dir is empty. A missing
// file is not an error; defaults and TPR_* environment overrides still apply.
func Load(dir string) (*viper.Viper, error) {
	if dir == "" {
		defaultDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		dir = defaultDir
	}

	cfg := New()
	cfg.SetConfigName(FileName)
	cfg.SetConfigType(FileType)
	cfg.AddConfigPath(dir)

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return cfg, nil
}

// New returns a viper instance with defaults and environment bindings but no
// config file.
func New() *viper.Viper {
	cfg := viper.New()
	cfg.SetDefault(KeyLogLevel, DefaultLogLevel)
	cfg.SetDefault(KeyLogFormat, DefaultLogFormat)

	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	return cfg
}

// ConfigDir returns the directory holding the data files when no explicit path
// is configured.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// Package config provides a reusable loader for cncli's node configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/cardano-community/cncli/pkg/utils"
)

// EnvOverrides holds the handful of secrets operators set via the
// environment rather than a checked-in config file (API keys, anything
// that shouldn't land in cmd/config/*.yaml). It is loaded independently of
// viper's file-based Config, following the gouroboros-starter-kit
// manifest's split between typed env-struct secrets and file-based
// settings.
type EnvOverrides struct {
	PoolToolAPIKey string `envconfig:"POOLTOOL_API_KEY"`
	PoolToolEndpoint string `envconfig:"POOLTOOL_ENDPOINT"`
}

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified runtime configuration for a cncli invocation. It
// mirrors the structure of the YAML files under cmd/config and is merged
// with environment-variable overrides. The core packages (store, protocol,
// leaderlog, nonce) never read this struct directly — cmd/cncli maps its
// fields onto the narrower plain structs each package accepts, per
// spec.md §6.
type Config struct {
	Node struct {
		Address       string `mapstructure:"address" json:"address"`
		NetworkMagic  uint32 `mapstructure:"network_magic" json:"network_magic"`
		NodeToNode    bool   `mapstructure:"node_to_node" json:"node_to_node"`
		ConnTimeoutMS int    `mapstructure:"conn_timeout_ms" json:"conn_timeout_ms"`
	} `mapstructure:"node" json:"node"`

	Store struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
	} `mapstructure:"store" json:"store"`

	Pool struct {
		ID         string `mapstructure:"id" json:"id"`
		VRFKeyPath string `mapstructure:"vrf_key_path" json:"vrf_key_path"`
	} `mapstructure:"pool" json:"pool"`

	Consensus struct {
		Variant string `mapstructure:"variant" json:"variant"` // tpraos | praos | cpraos
	} `mapstructure:"consensus" json:"consensus"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Overrides holds the env-sourced secrets loaded alongside AppConfig.
var Overrides EnvOverrides

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	// A .env file is optional local-development convenience; its absence
	// is not an error.
	_ = godotenv.Load()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("cncli")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // picks up CNCLI_* overrides, e.g. CNCLI_LOGGING_LEVEL

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}

	if err := envconfig.Process("cncli", &Overrides); err != nil {
		return nil, utils.Wrap(err, "load env overrides")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the CNCLI_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("CNCLI_ENV", ""))
}

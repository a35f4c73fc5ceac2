// Package config in cmd provides a thin wrapper around the shared
// configuration loader found in pkg/config. It exposes the loaded
// configuration via the AppConfig variable and mirrors the behaviour
// used by the command line tests.
package config

import (
	pkgconfig "github.com/cardano-community/cncli/pkg/config"
)

// AppConfig holds the currently loaded configuration for command line
// utilities. It mirrors pkg/config.AppConfig but is scoped to this
// package for convenience when writing CLI tools and tests.
var AppConfig pkgconfig.Config

// EnvOverrides mirrors pkg/config.Overrides: the env-sourced secrets that
// don't belong in a checked-in YAML file.
var EnvOverrides pkgconfig.EnvOverrides

// LoadConfig loads the configuration for the given environment name and
// stores it in AppConfig. Any errors during loading cause a panic, which is
// acceptable here: configuration errors are Input errors per spec.md §7 and
// are fatal at startup.
func LoadConfig(env string) {
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		panic(err)
	}
	AppConfig = *cfg
	EnvOverrides = pkgconfig.Overrides
}

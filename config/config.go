// Package config holds the registry of settings, their defaults, and the viper setup that loads them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer turns config keys into environment variable suffixes.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup loads defaults, environment bindings and the optional offtube.toml.
func Setup() error {
	viper.SetConfigName(constant.Offtube)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Offtube)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return Validate()
}

// Validate checks that every duration setting parses. viper.GetDuration
// silently returns zero otherwise, which would disable timeouts and loops.
func Validate() error {
	for name, field := range Default {
		def, ok := field.Value.(string)
		if !ok {
			continue
		}

		if _, err := time.ParseDuration(def); err != nil {
			continue
		}

		if _, err := time.ParseDuration(viper.GetString(name)); err != nil {
			return fmt.Errorf("%s: %q is not a duration", name, viper.GetString(name))
		}
	}

	return nil
}

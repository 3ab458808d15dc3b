// Copyright (C) 2026 Michael Robbins
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/michael-robbins/filemerger/internal/linesource"
)

// Config aggregates configuration for the application.
type Config struct {
	Merge MergeConfig `mapstructure:"merge"`
	Cache CacheConfig `mapstructure:"cache"`
	Log   LogConfig   `mapstructure:"log"`
}

type MergeConfig struct {
	// MaxLineBytes bounds a single input line.
	MaxLineBytes int `mapstructure:"max_line_bytes"`
}

type CacheConfig struct {
	// DefaultPath is used when --cache-file is not given to cache commands.
	DefaultPath string `mapstructure:"default_path"`
}

type LogConfig struct {
	// Level is the floor when no -v flags are given: warn, info or debug.
	Level string `mapstructure:"level"`
	// File duplicates logs to this path when set.
	File string `mapstructure:"file"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			MaxLineBytes: linesource.DefaultMaxLineBytes,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from an optional config file in the working
// directory and from environment variables. Environment variables use the
// prefix "FILEMERGE" and the dot character in keys is replaced by an
// underscore. For example, "merge.max_line_bytes" becomes
// "FILEMERGE_MERGE_MAX_LINE_BYTES".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("FILEMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

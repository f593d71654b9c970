// Package conf contains utility functions for loading and parsing configuration files.
package conf

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variables that override file keys,
// for example FUNCIRCLE_DB_PASSWORD overrides db.password.
const EnvPrefix = "FUNCIRCLE"

// PostgresConf describes a default configuration for the postgres database.
type PostgresConf struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSL      string `mapstructure:"ssl"`
}

// RedisConf describes a default configuration for redis.
type RedisConf struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	Database   int    `mapstructure:"database"`
	DisableTLS bool   `mapstructure:"disabletls"`
	PoolSize   int    `mapstructure:"poolsize"`
}

// ElasticConf describes the elasticsearch cluster used for account search.
// An empty address list disables it.
type ElasticConf struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

// AddrConf describes a listen or dial address.
type AddrConf struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DataConf describes where uploaded media lives and how it is served.
type DataConf struct {
	Path    string `mapstructure:"path"`
	BaseURL string `mapstructure:"baseurl"`
}

// APIConf holds request scoped settings for the HTTP API.
type APIConf struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	SweepToken string        `mapstructure:"sweeptoken"`
	Origins    []string      `mapstructure:"origins"`
}

// Load opens and parses a configuration file.
func Load(file string, conf interface{}) error {
	_, err := os.Stat(file)
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		return err
	}

	err = v.Unmarshal(conf)
	if err != nil {
		return err
	}

	return nil
}

// LoadEnv reads .env style files into the process environment so they can
// override configuration keys. Missing files are ignored.
func LoadEnv(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

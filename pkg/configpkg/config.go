// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environment         string        `mapstructure:"GO_ENV"`
	StorageBackend      string        `mapstructure:"STORAGE_BACKEND"`
	LockBackend         string        `mapstructure:"LOCK_BACKEND"`
	LockTimeout         time.Duration `mapstructure:"LOCK_TIMEOUT"`
	RedisAddress        string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int           `mapstructure:"REDIS_DB"`
	MovementCacheTTL    time.Duration `mapstructure:"MOVEMENT_CACHE_TTL"`
	SchedulerInterval   time.Duration `mapstructure:"SCHEDULER_INTERVAL"`
}

// Load reads configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("STORAGE_BACKEND", StoragePostgres)
	v.SetDefault("LOCK_BACKEND", LockLocal)
	v.SetDefault("LOCK_TIMEOUT", 2*time.Second)
	v.SetDefault("MOVEMENT_CACHE_TTL", 10*time.Minute)
	v.SetDefault("SCHEDULER_INTERVAL", time.Minute)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

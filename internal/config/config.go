package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	PGDSN             string
	KeyFile           string
	HTTPAddr          string
	ConfirmWindow     uint64
	StalePendingAfter time.Duration
	ComputeUnitLimit  uint32
	PriorityFee       uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	Out               string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENDROP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("http-addr", ":8080")
	v.SetDefault("confirm-window", uint64(150))
	v.SetDefault("stale-pending-after", 30*time.Minute)
	v.SetDefault("compute-unit-limit", uint32(500_000))
	v.SetDefault("priority-fee", uint64(10_000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		PGDSN:             v.GetString("pg-dsn"),
		KeyFile:           v.GetString("key-file"),
		HTTPAddr:          v.GetString("http-addr"),
		ConfirmWindow:     v.GetUint64("confirm-window"),
		StalePendingAfter: v.GetDuration("stale-pending-after"),
		ComputeUnitLimit:  v.GetUint32("compute-unit-limit"),
		PriorityFee:       v.GetUint64("priority-fee"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Out:               v.GetString("out"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

package qbufcore

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries the manager tunables of spec.md §3 "Manager state" /
// §6 "Configuration tunables".
type Config struct {
	RootPath          string
	MaxQueryDataSize  int64
	SoftWatermark     int64
	HardWatermark     int64
	InmemMax          int64
	DefaultExpire     time.Duration
	IncompleteRelease time.Duration
	TickInterval      time.Duration
}

// Default tunables, used when neither an environment variable nor a config
// file overrides them.
const (
	defaultRootPath          = "./qbuf-data"
	defaultMaxQueryDataSize  = 512 << 20 // 512 MiB
	defaultSoftWatermark     = 256 << 20 // 256 MiB
	defaultHardWatermark     = 384 << 20 // 384 MiB
	defaultInmemMax          = 64 << 20  // 64 MiB
	defaultExpire            = 5 * time.Minute
	defaultIncompleteRelease = 30 * time.Second
	defaultTickInterval      = time.Second
)

// LoadConfig builds a Config from QBUF_* environment variables and an
// optional YAML file at configPath (empty to skip), falling back to hard
// defaults — the same env-var-driven tunable loading the teacher does by
// hand in cmd/coordinator/main.go's getenv helper, scaled up via viper
// because qbuf has many more tunables of mixed types (durations, byte
// sizes, paths).
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QBUF")
	v.AutomaticEnv()

	v.SetDefault("root_path", defaultRootPath)
	v.SetDefault("max_query_data_size", defaultMaxQueryDataSize)
	v.SetDefault("soft_watermark", defaultSoftWatermark)
	v.SetDefault("hard_watermark", defaultHardWatermark)
	v.SetDefault("inmem_max", defaultInmemMax)
	v.SetDefault("default_expire_ms", defaultExpire.Milliseconds())
	v.SetDefault("incomplete_release_ms", defaultIncompleteRelease.Milliseconds())
	v.SetDefault("tick_interval_ms", defaultTickInterval.Milliseconds())

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("qbuf: read config %s: %w", configPath, err)
		}
	}

	cfg := Config{
		RootPath:          v.GetString("root_path"),
		MaxQueryDataSize:  v.GetInt64("max_query_data_size"),
		SoftWatermark:     v.GetInt64("soft_watermark"),
		HardWatermark:     v.GetInt64("hard_watermark"),
		InmemMax:          v.GetInt64("inmem_max"),
		DefaultExpire:     time.Duration(v.GetInt64("default_expire_ms")) * time.Millisecond,
		IncompleteRelease: time.Duration(v.GetInt64("incomplete_release_ms")) * time.Millisecond,
		TickInterval:      time.Duration(v.GetInt64("tick_interval_ms")) * time.Millisecond,
	}

	if cfg.HardWatermark < cfg.SoftWatermark {
		return Config{}, fmt.Errorf("qbuf: hard_watermark (%d) must be >= soft_watermark (%d)", cfg.HardWatermark, cfg.SoftWatermark)
	}

	return cfg, nil
}

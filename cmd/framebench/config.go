// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is read from FRAMEBENCH_* environment variables.
type Config struct {
	Devices      int   `envconfig:"DEVICES" default:"2"`
	Slots        int   `envconfig:"SLOTS" default:"8"`
	MaxFrames    int   `envconfig:"MAX_FRAMES" default:"16"`
	Pixels       int   `envconfig:"PIXELS" default:"16384"`
	Pipelines    int   `envconfig:"PIPELINES" default:"2"`
	Frames       int   `envconfig:"FRAMES" default:"20000"`
	DeviceMemory int64 `envconfig:"DEVICE_MEMORY" default:"0"`

	// MetricsAddr, when set, serves /metrics on that address for the
	// duration of the run.
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	Progress    bool   `envconfig:"PROGRESS" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev   bool   `envconfig:"LOG_DEV" default:"false"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("framebench", &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Pipelines < 1 || cfg.Slots < cfg.Pipelines {
		return nil, errors.Errorf("need 1 <= pipelines (%d) <= slots (%d)", cfg.Pipelines, cfg.Slots)
	}
	if cfg.Frames < 1 {
		return nil, errors.Errorf("frames %d", cfg.Frames)
	}
	return &cfg, nil
}

func newLogger(cfg *Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.LogDev {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

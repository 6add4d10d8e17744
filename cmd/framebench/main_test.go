// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"testing"

	"code.hybscloud.com/framepipe/calib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Devices)
	assert.Equal(t, 8, cfg.Slots)
	assert.Equal(t, 16, cfg.MaxFrames)
	assert.Empty(t, cfg.MetricsAddr)
	assert.True(t, cfg.Progress)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("FRAMEBENCH_SLOTS", "4")
	t.Setenv("FRAMEBENCH_PIPELINES", "4")
	t.Setenv("FRAMEBENCH_LOG_LEVEL", "debug")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Slots)
	assert.Equal(t, 4, cfg.Pipelines)

	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	t.Setenv("FRAMEBENCH_PIPELINES", "5")
	_, err = loadConfig()
	assert.Error(t, err, "more pipelines than slots")

	t.Setenv("FRAMEBENCH_PIPELINES", "1")
	t.Setenv("FRAMEBENCH_SLOTS", "many")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestSyntheticFrames(t *testing.T) {
	a := syntheticFrames(4, 16, 1)
	b := syntheticFrames(4, 16, 1)
	require.Len(t, a, 64)
	assert.Equal(t, a, b, "same seed, same frames")
	for _, w := range a {
		_, adc := calib.Decode(w)
		assert.GreaterOrEqual(t, adc, uint16(900))
		assert.Less(t, adc, uint16(1100))
	}
}

func TestRun(t *testing.T) {
	cfg := &Config{
		Devices:   2,
		Slots:     4,
		MaxFrames: 4,
		Pixels:    32,
		Pipelines: 2,
		Frames:    101,
	}
	require.NoError(t, run(context.Background(), cfg, zaptest.NewLogger(t)))
}

func TestRunCanceled(t *testing.T) {
	cfg := &Config{
		Devices:   1,
		Slots:     2,
		MaxFrames: 2,
		Pixels:    8,
		Pipelines: 1,
		Frames:    1 << 20,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, context.Canceled)
}

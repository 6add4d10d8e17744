// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package calib_test

import (
	"testing"

	"code.hybscloud.com/framepipe/calib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncode(t *testing.T) {
	for _, tc := range []struct {
		raw   uint16
		stage int
		adc   uint16
	}{
		{0x0000, 0, 0},
		{0x3fff, 0, 0x3fff},
		{0x4123, 1, 0x0123},
		{0xc010, 2, 0x0010},
		{0x8010, 2, 0x0010},
	} {
		stage, adc := calib.Decode(tc.raw)
		assert.Equal(t, tc.stage, stage, "raw %#04x", tc.raw)
		assert.Equal(t, tc.adc, adc, "raw %#04x", tc.raw)
	}
	for stage := range calib.Stages {
		s, adc := calib.Decode(calib.Encode(stage, 1234))
		assert.Equal(t, stage, s)
		assert.EqualValues(t, 1234, adc)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, calib.NewMap(4).Validate())

	var nilMap *calib.Map
	assert.ErrorIs(t, nilMap.Validate(), calib.ErrInvalidMap)
	assert.ErrorIs(t, (&calib.Map{Pixels: 0}).Validate(), calib.ErrInvalidMap)

	m := calib.NewMap(4)
	m.Gain = m.Gain[:5]
	assert.ErrorIs(t, m.Validate(), calib.ErrInvalidMap)
}

func TestCorrectZeroMapYieldsZeros(t *testing.T) {
	const pixels, frames = 6, 3
	m := calib.NewMap(pixels)
	raw := make([]uint16, frames*pixels)
	corrected := make([]float32, frames*pixels)
	sums := []float64{9, 9, 9, 9, 9, 9}

	calib.Correct(raw, frames, pixels, m.Gain, m.Pedestal, corrected, sums)

	assert.Equal(t, make([]float32, frames*pixels), corrected)
	assert.Equal(t, make([]float64, pixels), sums)
}

func TestCorrectAppliesStageMaps(t *testing.T) {
	const pixels = 2
	m := calib.Uniform(pixels, [calib.Stages]float64{0.5, 2, 10}, [calib.Stages]float64{100, 200, 300})

	raw := []uint16{
		calib.Encode(0, 300), calib.Encode(1, 250),
		calib.Encode(2, 301), calib.Encode(0, 100),
	}
	corrected := make([]float32, len(raw))
	sums := make([]float64, pixels)
	calib.Correct(raw, 2, pixels, m.Gain, m.Pedestal, corrected, sums)

	assert.Equal(t, []float32{100, 100, 10, 0}, corrected)
	assert.Equal(t, []float64{110, 100}, sums)
}

func TestCorrectDoesNotAllocate(t *testing.T) {
	const pixels, frames = 64, 8
	m := calib.Uniform(pixels, [calib.Stages]float64{1, 2, 3}, [calib.Stages]float64{10, 20, 30})
	raw := make([]uint16, frames*pixels)
	for i := range raw {
		raw[i] = calib.Encode(i%calib.Stages, uint16(i))
	}
	corrected := make([]float32, len(raw))
	sums := make([]float64, pixels)

	allocs := testing.AllocsPerRun(100, func() {
		calib.Correct(raw, frames, pixels, m.Gain, m.Pedestal, corrected, sums)
	})
	assert.Zero(t, allocs)

	// Sums restart from zero on every call.
	calib.Correct(raw, frames, pixels, m.Gain, m.Pedestal, corrected, sums)
	var want float64
	for f := range frames {
		want += float64(corrected[f*pixels])
	}
	assert.InDelta(t, want, sums[0], 1e-6)
}

func TestPedestalFromDark(t *testing.T) {
	const pixels = 2
	m := calib.Uniform(pixels, [calib.Stages]float64{1, 1, 1}, [calib.Stages]float64{7, 8, 9})
	dark := []uint16{
		calib.Encode(0, 100), calib.Encode(1, 40),
		calib.Encode(0, 110), calib.Encode(1, 60),
		calib.Encode(0, 120), calib.Encode(0, 5),
	}

	out, err := calib.PedestalFromDark(m, dark)
	require.NoError(t, err)

	assert.Equal(t, []float64{
		110, 5, // stage 0
		8, 50, // stage 1
		9, 9, // stage 2 never observed
	}, out.Pedestal)
	assert.Equal(t, []float64{7, 7, 8, 8, 9, 9}, m.Pedestal, "input map must not change")

	_, err = calib.PedestalFromDark(m, dark[:3])
	assert.ErrorIs(t, err, calib.ErrInvalidFrames)
}

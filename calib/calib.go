// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package calib holds per-pixel calibration data for charge-integrating
// detectors with dynamic gain switching, and the default correction
// kernel that applies it.
//
// A raw pixel word carries the gain stage in bits 15..14 and the ADC
// value in bits 13..0. The corrected value of a pixel is
//
//	(adc - pedestal[stage]) * gain[stage]
//
// with per-pixel pedestal and gain for each of the Stages gain stages.
package calib

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stages is the number of gain stages per pixel.
const Stages = 3

const adcMask = 0x3fff

// ErrInvalidMap is returned for maps whose layout does not match their
// pixel count.
var ErrInvalidMap = errors.New("calib: invalid map")

// ErrInvalidFrames is returned when a frame buffer is not a whole number
// of frames.
var ErrInvalidFrames = errors.New("calib: invalid frames")

// Map is a correction map. Gain and Pedestal hold Stages*Pixels values,
// stage-major: the value for stage s of pixel p is at s*Pixels+p.
type Map struct {
	Pixels   int
	Gain     []float64
	Pedestal []float64
}

// NewMap returns an all-zero map for pixels pixels.
func NewMap(pixels int) *Map {
	return &Map{
		Pixels:   pixels,
		Gain:     make([]float64, Stages*pixels),
		Pedestal: make([]float64, Stages*pixels),
	}
}

// Uniform returns a map with the same gain and pedestal for every pixel.
func Uniform(pixels int, gain, pedestal [Stages]float64) *Map {
	m := NewMap(pixels)
	for s := range Stages {
		floats.AddConst(gain[s], m.Gain[s*pixels:(s+1)*pixels])
		floats.AddConst(pedestal[s], m.Pedestal[s*pixels:(s+1)*pixels])
	}
	return m
}

// Validate checks the map layout.
func (m *Map) Validate() error {
	if m == nil {
		return errors.Wrap(ErrInvalidMap, "nil map")
	}
	if m.Pixels < 1 {
		return errors.Wrapf(ErrInvalidMap, "pixels %d", m.Pixels)
	}
	if len(m.Gain) != Stages*m.Pixels || len(m.Pedestal) != Stages*m.Pixels {
		return errors.Wrapf(ErrInvalidMap, "%d pixels need %d values, have gain %d pedestal %d",
			m.Pixels, Stages*m.Pixels, len(m.Gain), len(m.Pedestal))
	}
	return nil
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	c := &Map{
		Pixels:   m.Pixels,
		Gain:     make([]float64, len(m.Gain)),
		Pedestal: make([]float64, len(m.Pedestal)),
	}
	copy(c.Gain, m.Gain)
	copy(c.Pedestal, m.Pedestal)
	return c
}

// Decode splits a raw pixel word into gain stage and ADC value.
// The unused stage encoding 2 is reported as the highest stage.
func Decode(raw uint16) (stage int, adc uint16) {
	switch raw >> 14 {
	case 0:
		stage = 0
	case 1:
		stage = 1
	default:
		stage = 2
	}
	return stage, raw & adcMask
}

// Encode builds a raw pixel word. It is the inverse of Decode for stages
// 0, 1 and 2.
func Encode(stage int, adc uint16) uint16 {
	bits := uint16(stage)
	if stage >= 2 {
		bits = 3
	}
	return bits<<14 | adc&adcMask
}

// Correct applies gain and pedestal to frames raw frames of pixels
// pixels each. corrected receives one value per input pixel; sums
// receives the per-pixel sum of corrected values over all frames.
// Correct does not allocate.
func Correct(raw []uint16, frames, pixels int, gain, pedestal []float64, corrected []float32, sums []float64) {
	sums = sums[:pixels]
	clear(sums)
	for f := range frames {
		in := raw[f*pixels : (f+1)*pixels]
		out := corrected[f*pixels : (f+1)*pixels]
		for p, w := range in {
			stage, adc := Decode(w)
			i := stage*pixels + p
			v := (float64(adc) - pedestal[i]) * gain[i]
			out[p] = float32(v)
			sums[p] += v
		}
	}
}

// PedestalFromDark returns a copy of m whose pedestal is re-estimated from
// dark frames: for every pixel and stage the mean ADC value of the frames
// in which the pixel reported that stage. Pixel stages never observed in
// dark keep their previous pedestal.
func PedestalFromDark(m *Map, dark []uint16) (*Map, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(dark) == 0 || len(dark)%m.Pixels != 0 {
		return nil, errors.Wrapf(ErrInvalidFrames, "%d words for %d pixels", len(dark), m.Pixels)
	}

	frames := len(dark) / m.Pixels
	out := m.Clone()
	samples := make([][]float64, Stages)
	for s := range samples {
		samples[s] = make([]float64, 0, frames)
	}
	for p := range m.Pixels {
		for s := range samples {
			samples[s] = samples[s][:0]
		}
		for f := range frames {
			stage, adc := Decode(dark[f*m.Pixels+p])
			samples[stage] = append(samples[stage], float64(adc))
		}
		for s, xs := range samples {
			if len(xs) > 0 {
				out.Pedestal[s*m.Pixels+p] = stat.Mean(xs, nil)
			}
		}
	}
	return out, nil
}

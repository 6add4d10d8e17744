// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe

import "code.hybscloud.com/framepipe/calib"

// KernelArgs are the device-resident buffers of one batch.
//
// Raw and Corrected hold Frames*Pixels elements; Sums holds Pixels;
// Gain and Pedestal hold calib.Stages*Pixels.
type KernelArgs struct {
	Frames    int
	Pixels    int
	Raw       []uint16
	Gain      []float64
	Pedestal  []float64
	Corrected []float32
	Sums      []float64
}

// Kernel is the correction operation launched once per ingested batch.
// It runs on the slot's stream and must write Corrected and Sums only.
type Kernel func(KernelArgs)

// DefaultKernel applies calib.Correct.
func DefaultKernel(a KernelArgs) {
	calib.Correct(a.Raw, a.Frames, a.Pixels, a.Gain, a.Pedestal, a.Corrected, a.Sums)
}

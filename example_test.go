// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framepipe_test

import (
	"fmt"

	"code.hybscloud.com/framepipe"
	"code.hybscloud.com/framepipe/accel"
	"code.hybscloud.com/framepipe/calib"
)

// Example shows one batch through a single-slot pipeline.
func Example() {
	platform, err := accel.NewPlatform(1)
	if err != nil {
		panic(err)
	}
	table, err := framepipe.NewTable(platform, framepipe.TableConfig{Slots: 1, MaxFrames: 2, Pixels: 4})
	if err != nil {
		panic(err)
	}
	defer table.Close()

	m := calib.Uniform(4, [calib.Stages]float64{2, 20, 200}, [calib.Stages]float64{10, 0, 0})
	p, err := framepipe.New(table, m, 1)
	if err != nil {
		panic(err)
	}
	defer p.Close()

	raw := make([]uint16, 8)
	for i := range raw {
		raw[i] = calib.Encode(0, uint16(11+i))
	}
	n, _ := p.Ingest(raw)
	fmt.Println("accepted:", n)

	p.Synchronize()
	var r framepipe.Result
	if p.Retrieve(&r) {
		fmt.Println("frame 0:", r.Frame(0))
		fmt.Println("frame 1:", r.Frame(1))
		fmt.Println("sums:", r.Sums)
	}
	// Output:
	// accepted: 2
	// frame 0: [2 4 6 8]
	// frame 1: [10 12 14 16]
	// sums: [12 16 20 24]
}

// ExamplePipeline_Ingest shows backpressure when every slot is busy.
func ExamplePipeline_Ingest() {
	platform, _ := accel.NewPlatform(1)
	table, _ := framepipe.NewTable(platform, framepipe.TableConfig{Slots: 1, MaxFrames: 1, Pixels: 1})
	defer table.Close()
	p, _ := framepipe.New(table, calib.NewMap(1), 1)
	defer p.Close()

	n, _ := p.Ingest([]uint16{0})
	fmt.Println(n, p.Empty())
	n, _ = p.Ingest([]uint16{0})
	fmt.Println(n)

	p.Synchronize()
	p.Retrieve(&framepipe.Result{})
	n, _ = p.Ingest([]uint16{0})
	fmt.Println(n)
	p.Synchronize()
	p.Retrieve(&framepipe.Result{})
	// Output:
	// 1 true
	// 0
	// 1
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

package ring

// RaceEnabled reports whether the binary was built with -race. Stress
// tests of the ring and of the slot handoff built on it run only when it
// is false.
const RaceEnabled = false

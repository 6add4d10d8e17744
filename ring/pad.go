// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

// pad keeps independently written cursors on separate cache lines.
type pad [64]byte

// padShort fills the rest of a cache line after an 8-byte turn word and a
// pointer-sized item.
type padShort [64 - 16]byte

// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import "unsafe"

// cacheLine is the assumed destructive-interference size on the target
// platforms this package is tuned for. Padding fields sized against it
// keep independently-mutated atomics off the same cache line.
const cacheLine = 64

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is a full cache line of padding, used between unrelated
// independently-hot atomic fields.
type pad [cacheLine]byte

// padHazard pads a hazard record down to one cache line after its two
// pointer-sized fields (owner id, protected pointer).
type padHazard [cacheLine - 2*ptrSize]byte

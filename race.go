// ©Veyron Labs 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfc

// RaceEnabled is true when the race detector is active. Tests use it to
// skip concurrent stress cases, which trigger false positives: the race
// detector tracks explicit synchronization primitives but cannot observe
// happens-before relationships established purely through acquire/release
// orderings on separate atomic variables, which is how the hazard
// protocol and the CAS loops in this package synchronize.
const RaceEnabled = true

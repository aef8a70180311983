// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

// PaddingFor returns the number of zero bytes needed to round size up to alignment.
// It works on 64-bit values so layout sums can be checked against the uint32
// header fields after padding. A zero alignment needs no padding.
func PaddingFor(size uint64, alignment uint64) uint64 {
	if alignment == 0 {
		return 0
	}

	if rem := size % alignment; rem != 0 {
		return alignment - rem
	}

	return 0
}

// alignUp rounds size up to the package Alignment.
func alignUp(size uint64) uint64 {
	return size + PaddingFor(size, Alignment)
}

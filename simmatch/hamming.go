package simmatch

import "sync"

// FingerprintBits is the width of a SimHash fingerprint.
const FingerprintBits = 32

// MaxDistance is the largest Hamming distance between two fingerprints.
const MaxDistance = FingerprintBits

var (
	hammingOnce    sync.Once
	hamming16Table []uint8
)

// hamming16 returns the popcount table for every 16-bit value. Built once,
// read-only afterwards.
func hamming16() []uint8 {
	hammingOnce.Do(func() {
		var hamming8 [256]uint8
		for i := 1; i < 256; i++ {
			hamming8[i] = hamming8[i>>1] + uint8(i&1)
		}
		table := make([]uint8, 1<<16)
		for i := range table {
			table[i] = hamming8[(i>>8)&0xff] + hamming8[i&0xff]
		}
		hamming16Table = table
	})
	return hamming16Table
}

// Distance returns the number of differing bits between two fingerprints.
func Distance(a, b uint32) int {
	table := hamming16()
	x := a ^ b
	return int(table[x>>16]) + int(table[x&0xffff])
}

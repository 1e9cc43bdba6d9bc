package simmatch

import (
	"crypto/md5"
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru/v2"
)

const ngramHashCacheSize = 1 << 18

var ngramHashes, _ = lru.New[string, uint32](ngramHashCacheSize)

// NgramHash returns a hash of ngram that is stable across processes: the low
// 32 bits of its MD5 digest.
func NgramHash(ngram string) uint32 {
	if h, ok := ngramHashes.Get(ngram); ok {
		return h
	}
	sum := md5.Sum([]byte(ngram))
	h := binary.BigEndian.Uint32(sum[md5.Size-4:])
	ngramHashes.Add(ngram, h)
	return h
}

// Fingerprint computes the frequency weighted SimHash of ngrams. Each n-gram
// pushes every bit accumulator up by its weight when the matching bit of its
// hash is set and down otherwise; output bits are set where the accumulator
// ends up positive.
func Fingerprint(ngrams []string, weight func(string) int) uint32 {
	var acc [FingerprintBits]int
	for _, ngram := range ngrams {
		w := weight(ngram)
		h := NgramHash(ngram)
		for i := 0; i < FingerprintBits; i++ {
			if (h>>i)&1 == 1 {
				acc[i] += w
			} else {
				acc[i] -= w
			}
		}
	}
	var fp uint32
	for i := 0; i < FingerprintBits; i++ {
		if acc[i] > 0 {
			fp |= 1 << i
		}
	}
	return fp
}

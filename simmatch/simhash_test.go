package simmatch

import (
	"crypto/md5"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNgramHashStable(t *testing.T) {
	sum := md5.Sum([]byte("ab"))
	want := binary.BigEndian.Uint32(sum[12:])
	assert.Equal(t, want, NgramHash("ab"))
	assert.Equal(t, want, NgramHash("ab"))
	assert.NotEqual(t, NgramHash("ab"), NgramHash("ba"))
}

func TestFingerprintSingleNgramIsItsHash(t *testing.T) {
	one := func(string) int { return 1 }
	assert.Equal(t, NgramHash("xy"), Fingerprint([]string{"xy"}, one))
}

func TestFingerprintEmpty(t *testing.T) {
	assert.Zero(t, Fingerprint(nil, func(string) int { return 1 }))
}

func TestFingerprintHeavyNgramDominates(t *testing.T) {
	weight := func(s string) int {
		if s == "zz" {
			return 1000
		}
		return 1
	}
	ngrams := []string{"zz", "ab", "cd", "ef"}
	assert.Equal(t, NgramHash("zz"), Fingerprint(ngrams, weight))
}

func TestFingerprintOrderIndependent(t *testing.T) {
	one := func(string) int { return 1 }
	a := Fingerprint([]string{"he", "el", "ll", "lo"}, one)
	b := Fingerprint([]string{"lo", "ll", "el", "he"}, one)
	assert.Equal(t, a, b)
}

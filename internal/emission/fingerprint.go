package emission

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// Hasher computes the fingerprint a flushed block is deduplicated by.
type Hasher func(string) uint64

// Cyrb53 is a 53-bit string hash: two interleaved 32-bit multiplicative
// accumulators, a final avalanche, and the halves folded into one value.
// It walks UTF-16 code units. A byte that is not valid UTF-8 is fed as a
// lone low surrogate carrying the byte, which no valid text produces.
func Cyrb53(s string) uint64 {
	h1 := uint32(0xdeadbeef)
	h2 := uint32(0x41c6ce57)

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			h1, h2 = cyrbStep(h1, h2, 0xdc00|uint32(s[0]))
			s = s[1:]
			continue
		}
		s = s[size:]
		if r > 0xffff {
			r1, r2 := utf16.EncodeRune(r)
			h1, h2 = cyrbStep(h1, h2, uint32(r1))
			h1, h2 = cyrbStep(h1, h2, uint32(r2))
			continue
		}
		h1, h2 = cyrbStep(h1, h2, uint32(r))
	}

	h1 = (h1 ^ (h1 >> 16)) * 2246822507
	h1 ^= (h2 ^ (h2 >> 13)) * 3266489909
	h2 = (h2 ^ (h2 >> 16)) * 2246822507
	h2 ^= (h1 ^ (h1 >> 13)) * 3266489909

	return uint64(h2&0x1fffff)<<32 | uint64(h1)
}

func cyrbStep(h1, h2, ch uint32) (uint32, uint32) {
	return (h1 ^ ch) * 2654435761, (h2 ^ ch) * 1597334677
}

// XXHash is the 64-bit xxHash digest of s.
func XXHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HasherByName maps a configuration name to a Hasher.
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", "cyrb53":
		return Cyrb53, nil
	case "xxhash":
		return XXHash, nil
	default:
		return nil, fmt.Errorf("unknown fingerprint %q (want cyrb53 or xxhash)", name)
	}
}

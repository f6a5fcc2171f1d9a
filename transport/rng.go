package transport

import "math/rand"

// MathRNG is the default RNG adapter, used for SSRC and stream-id
// generation where cryptographic randomness is not required — the same
// trust level original_source's rng::generate_random_uint32 assumes.
type MathRNG struct{}

func (MathRNG) Uint32() uint32 {
	return rand.Uint32()
}

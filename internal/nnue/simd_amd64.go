//go:build amd64

package nnue

// Backend names the hidden-layer dispatch path compiled for this target.
// On amd64 the runtime selects between AVX2 (128-wide) and SSSE3 (64-wide)
// lanes in a true SIMD port; this pure-Go build routes both names to the
// identical scalar arithmetic in HiddenLayer.Forward, so the bit-exact
// agreement spec §8 #6 requires holds trivially rather than by testing luck.
const Backend = "avx2"

//go:build arm64

package nnue

// See simd_amd64.go: this backend name documents the lane width a NEON
// port would use (64-wide); the computation itself is the scalar reference.
const Backend = "neon"

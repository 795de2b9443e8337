//go:build !amd64 && !arm64

package nnue

const Backend = "scalar"

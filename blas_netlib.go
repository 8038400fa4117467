//go:build netlib

package main

// #cgo LDFLAGS: -lopenblas
import "C"
import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Build with `-tags netlib` to route gonum's matrix products through a
// native BLAS instead of the pure-Go implementation.
func init() {
	blas64.Use(netlib.Implementation{})
}

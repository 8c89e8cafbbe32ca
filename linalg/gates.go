package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	identity = mat.NewCDense(2, 2, []complex128{
		1, 0,
		0, 1,
	})

	// Symmetric 50:50 coupler.
	beamSplitter = mat.NewCDense(2, 2, []complex128{
		complex(math.Sqrt2/2, 0), complex(0, math.Sqrt2/2),
		complex(0, math.Sqrt2/2), complex(math.Sqrt2/2, 0),
	})

	// Phase flip on |11>.
	cphase = mat.NewCDense(4, 4, []complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
	})

	// Phase flip on |00>: the photonic variant, equal to cphase up to
	// single-qubit X corrections and a global sign.
	cphaseModified = mat.NewCDense(4, 4, []complex128{
		-1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
)

// Identity returns a fresh 2×2 identity.
func Identity() *mat.CDense { return Clone(identity) }

// BeamSplitter returns a fresh copy of the 2×2 beam-splitter gate.
func BeamSplitter() *mat.CDense { return Clone(beamSplitter) }

// CPhase returns a fresh copy of the standard 4×4 controlled-phase gate.
func CPhase() *mat.CDense { return Clone(cphase) }

// CPhaseModified returns a fresh copy of the modified 4×4 controlled-phase gate.
func CPhaseModified() *mat.CDense { return Clone(cphaseModified) }

// CPhaseGate picks the standard or the modified controlled-phase gate.
func CPhaseGate(standard bool) *mat.CDense {
	if standard {
		return CPhase()
	}
	return CPhaseModified()
}

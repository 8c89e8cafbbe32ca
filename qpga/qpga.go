// Package qpga simulates a quantum photonic gate array: a parameterized
// circuit assembled from a fixed gate template and trainable phases.
//
// A circuit on n qubits is one SingleQubitLayer followed by depth pairs
// of (CPhaseLayer, SingleQubitLayer):
//   - SingleQubitLayer: phase(α,β) → beam splitter → phase(θ) →
//     beam splitter → phase(φ), applied to every qubit at once through
//     Kronecker structure. α, β, θ, φ are the trainable parameters.
//   - CPhaseLayer: a fixed brick-wall of controlled-phase gates, offset by
//     one qubit on odd layers.
//
// States are row vectors; a batch is a [batch, 2^n] gonum CDense and every
// layer right-multiplies it by its transfer matrix. Callers that work in
// real arithmetic pass the paired [batch, 2, 2^n] encoding instead and the
// circuit converts at its boundary.
//
// Every layer has a Backward pass, so phase gradients for any real loss
// are available without an external autodiff substrate:
//
//	circuit, _ := qpga.NewCircuit(qpga.DefaultConfig(3, 4))
//	out, _ := circuit.Forward(in)
//	grad, _ := qpga.AntifidelityGrad(qpga.ComplexBatch(target), qpga.ComplexBatch(out))
//	circuit.ZeroGrad()
//	circuit.Backward(grad)
//	for _, p := range circuit.Parameters() {
//		// p.Value -= lr * p.Grad
//	}
package qpga

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the package logger. It only reports warnings unless raised
// with SetLogLevel.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "qpga",
	Level:  log.WarnLevel,
})

// SetLogLevel changes the verbosity of Logger.
func SetLogLevel(level log.Level) {
	Logger.SetLevel(level)
}

// Command qpga builds (or loads) a photonic gate array, pushes a
// computational basis state through it and prints a report.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"

	"github.com/openfluke/qpga/gpu"
	"github.com/openfluke/qpga/linalg"
	"github.com/openfluke/qpga/qpga"
)

type options struct {
	qubits   int
	depth    int
	standard bool
	seed     int64
	config   string
	load     string
	save     string
	modelID  string
	basis    int
	useGPU   bool
	verbose  bool
	dump     bool

	// names of flags given on the command line
	set map[string]bool
}

func main() {
	var opts options
	flag.IntVar(&opts.qubits, "qubits", 3, "Number of qubits")
	flag.IntVar(&opts.depth, "depth", 4, "Number of (cphase, single-qubit) layer pairs")
	flag.BoolVar(&opts.standard, "standard-cphase", true, "Use diag(1,1,1,-1) instead of the modified gate")
	flag.Int64Var(&opts.seed, "seed", 0, "Seed for the initial phases")
	flag.StringVar(&opts.config, "config", "", "JSON circuit config; -qubits/-depth/-standard-cphase/-seed given explicitly override it")
	flag.StringVar(&opts.load, "load", "", "Load a saved model bundle")
	flag.StringVar(&opts.save, "save", "", "Save the circuit as a model bundle")
	flag.StringVar(&opts.modelID, "id", "qpga", "Model ID inside the bundle")
	flag.IntVar(&opts.basis, "basis", 0, "Computational basis state fed to the circuit")
	flag.BoolVar(&opts.useGPU, "gpu", false, "Also run the forward pass on the GPU")
	flag.BoolVar(&opts.verbose, "v", false, "Log every layer")
	flag.BoolVar(&opts.dump, "dump", false, "Dump the circuit blueprint")
	flag.Parse()
	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "qpga"})
	if opts.verbose {
		qpga.SetLogLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(opts, logger); err != nil {
		logger.Fatal("run failed", "err", err)
	}
}

func buildCircuit(opts options) (*qpga.Circuit, error) {
	if opts.load != "" {
		return qpga.LoadModel(opts.load, opts.modelID)
	}

	cfg := qpga.DefaultConfig(opts.qubits, opts.depth)
	cfg.UseStandardCPhase = opts.standard
	cfg.Seed = opts.seed
	if opts.config == "" {
		return qpga.NewCircuit(cfg)
	}

	fileCfg, err := qpga.LoadConfigFile(opts.config)
	if err != nil {
		return nil, err
	}
	return qpga.NewCircuit(applyFlags(fileCfg, opts))
}

// applyFlags overlays the circuit flags given on the command line.
func applyFlags(cfg qpga.Config, opts options) qpga.Config {
	if opts.set["qubits"] {
		cfg.NumQubits = opts.qubits
	}
	if opts.set["depth"] {
		cfg.Depth = opts.depth
	}
	if opts.set["standard-cphase"] {
		cfg.UseStandardCPhase = opts.standard
	}
	if opts.set["seed"] {
		cfg.Seed = opts.seed
	}
	return cfg
}

func run(opts options, logger *log.Logger) error {
	c, err := buildCircuit(opts)
	if err != nil {
		return errors.Wrap(err, "build circuit")
	}
	if opts.verbose {
		c.SetObserver(&qpga.LogObserver{Logger: logger})
	}

	x, err := qpga.BasisStates(c.Dimension(), opts.basis)
	if err != nil {
		return err
	}
	in := qpga.ComplexBatch(x)
	if !c.Config().ComplexInputs {
		in = qpga.RealBatch(linalg.ComplexToReal(x))
	}

	out, err := c.Call(in)
	if err != nil {
		return errors.Wrap(err, "forward")
	}
	y, err := out.ToComplex()
	if err != nil {
		return err
	}
	af, err := qpga.AntifidelityLoss(qpga.ComplexBatch(x), qpga.ComplexBatch(y))
	if err != nil {
		return err
	}

	report := []string{
		row("qubits", fmt.Sprint(c.NumQubits())),
		row("depth", fmt.Sprint(c.Depth())),
		row("parameters", fmt.Sprint(c.NumParameters())),
		row("input", fmt.Sprintf("|%0*b>", c.NumQubits(), opts.basis)),
		row("output norm", fmt.Sprintf("%.12f", cmplxs.Norm(linalg.Rows(y), 2))),
		row("antifidelity vs input", fmt.Sprintf("%.6f", af)),
	}

	if opts.useGPU {
		report = append(report, gpuReport(c, x, y, logger)...)
	}

	fmt.Println(titleStyle.Render("Quantum photonic gate array"))
	fmt.Println(pipelineStyle.Render(strings.TrimRight(c.AsSequential().Summary(), "\n")))
	fmt.Println(reportStyle.Render(lipgloss.JoinVertical(lipgloss.Left, report...)))

	if opts.dump {
		spew.Fdump(os.Stdout, qpga.ExtractBlueprint(c, opts.modelID))
	}

	if opts.save != "" {
		if err := c.SaveModel(opts.save, opts.modelID); err != nil {
			return err
		}
		fmt.Println(dimStyle.Render("saved " + opts.modelID + " to " + opts.save))
	}
	return nil
}

// gpuReport runs the same state on the device and compares the result.
// A missing adapter is reported, not fatal.
func gpuReport(c *qpga.Circuit, x, want *mat.CDense, logger *log.Logger) []string {
	if !gpu.Available() {
		logger.Warn("no WebGPU adapter, skipping gpu pass")
		return []string{row("gpu", dimStyle.Render("unavailable"))}
	}
	rows, _ := x.Dims()
	if err := c.InitGPU(rows); err != nil {
		logger.Warn("gpu init failed", "err", err)
		return []string{row("gpu", dimStyle.Render("init failed"))}
	}
	defer c.ReleaseGPU()

	got, err := c.ForwardGPU(x)
	if err != nil {
		logger.Warn("gpu forward failed", "err", err)
		return []string{row("gpu", dimStyle.Render("forward failed"))}
	}
	af, err := qpga.AntifidelityLoss(qpga.ComplexBatch(want), qpga.ComplexBatch(got))
	if err != nil {
		logger.Warn("gpu comparison failed", "err", err)
		return nil
	}
	return []string{row("gpu antifidelity vs cpu", fmt.Sprintf("%.3e", af))}
}

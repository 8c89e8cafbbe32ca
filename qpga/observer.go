package qpga

import (
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// StateStats summarizes the row norms of a batch. For a forward pass on
// normalized states every norm stays at 1; drift means a layer is not
// unitary.
type StateStats struct {
	Rows     int     `json:"rows"`
	Dim      int     `json:"dim"`
	MeanNorm float64 `json:"mean_norm"`
	MinNorm  float64 `json:"min_norm"`
	MaxNorm  float64 `json:"max_norm"`
}

// LayerEvent is delivered to a LayerObserver after each layer runs.
type LayerEvent struct {
	Type      string     `json:"type"` // "forward" or "backward"
	LayerIdx  int        `json:"layer_idx"`
	LayerName string     `json:"layer_name"`
	LayerKind LayerKind  `json:"layer_kind"`
	Stats     StateStats `json:"stats"`
	StepCount uint64     `json:"step"`
}

// LayerObserver receives per-layer events from a Circuit.
type LayerObserver interface {
	OnForward(event LayerEvent)
	OnBackward(event LayerEvent)
}

func computeStateStats(x *mat.CDense) StateStats {
	rows, cols := x.Dims()
	stats := StateStats{Rows: rows, Dim: cols, MinNorm: math.Inf(1)}
	if rows == 0 {
		stats.MinNorm = 0
		return stats
	}

	raw := x.RawCMatrix()
	var sum float64
	for b := 0; b < rows; b++ {
		norm := cmplxs.Norm(raw.Data[b*raw.Stride:b*raw.Stride+cols], 2)
		sum += norm
		stats.MinNorm = math.Min(stats.MinNorm, norm)
		stats.MaxNorm = math.Max(stats.MaxNorm, norm)
	}
	stats.MeanNorm = sum / float64(rows)
	return stats
}

// LogObserver writes one structured log line per event.
type LogObserver struct {
	Logger *log.Logger // defaults to the package Logger
}

func (o *LogObserver) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger
}

func (o *LogObserver) OnForward(event LayerEvent) {
	o.logger().Info("forward", "layer", event.LayerIdx, "name", event.LayerName,
		"kind", event.LayerKind, "mean_norm", event.Stats.MeanNorm, "step", event.StepCount)
}

func (o *LogObserver) OnBackward(event LayerEvent) {
	o.logger().Info("backward", "layer", event.LayerIdx, "name", event.LayerName,
		"kind", event.LayerKind, "grad_norm", event.Stats.MeanNorm, "step", event.StepCount)
}

// ChannelObserver forwards events to a buffered channel and drops them
// when the channel is full.
type ChannelObserver struct {
	Events chan LayerEvent
}

func NewChannelObserver(bufferSize int) *ChannelObserver {
	return &ChannelObserver{
		Events: make(chan LayerEvent, bufferSize),
	}
}

func (o *ChannelObserver) OnForward(event LayerEvent) {
	select {
	case o.Events <- event:
	default:
	}
}

func (o *ChannelObserver) OnBackward(event LayerEvent) {
	select {
	case o.Events <- event:
	default:
	}
}

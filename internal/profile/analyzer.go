package profile

import (
	"image"
	"log/slog"
	"math"
)

// Mode selects how much of the pipeline Recompute runs.
type Mode int

const (
	// ModeEdges samples, reduces, labels and classifies.
	ModeEdges Mode = iota

	// ModeSwatch stops after reduction: the profile carries colors and
	// scalars but no labels or events, and nothing is logged.
	ModeSwatch
)

func (m Mode) String() string {
	if m == ModeSwatch {
		return "swatch"
	}
	return "edges"
}

// ParseMode maps "edges" and "swatch" to their Mode. Unknown or empty names
// yield ModeEdges.
func ParseMode(s string) Mode {
	if s == "swatch" {
		return ModeSwatch
	}
	return ModeEdges
}

// Options controls a single Recompute call.
type Options struct {
	// Threshold is the edge threshold. Zero means DefaultThreshold.
	Threshold float64

	// MaxValue is the scalar clamp. Zero means DefaultMaxValue.
	MaxValue float64

	// EmitLog writes each edge event to the package logger. Callers set it
	// from Selector.TakeJustSelected so events are logged once per
	// selection.
	EmitLog bool

	Mode Mode
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxValue == 0 {
		o.MaxValue = DefaultMaxValue
	}
	return o
}

// Profile is the result of one Recompute. When Valid is false the
// endpoints did not describe a usable segment and every slice is empty.
type Profile struct {
	Valid         bool        `json:"valid"`
	Reason        string      `json:"reason,omitempty"`
	Mode          string      `json:"mode"`
	A             Point       `json:"a"`
	B             Point       `json:"b"`
	Threshold     float64     `json:"threshold"`
	MaxValue      float64     `json:"max_value"`
	LengthPixels  float64     `json:"length_pixels"`
	LengthMicrons *float64    `json:"length_microns,omitempty"`
	Calibration   string      `json:"calibration,omitempty"`
	Samples       []Sample    `json:"samples"`
	Labels        []Direction `json:"labels,omitempty"`
	Events        []EdgeEvent `json:"events"`
	Stats         Stats       `json:"stats"`
}

// Reasons reported on an invalid Profile.
const (
	ReasonIncomplete  = "endpoints incomplete"
	ReasonOutOfBounds = "endpoint outside image bounds"
	ReasonTooShort    = "segment shorter than two samples"
)

// Analyzer runs the sampling pipeline. The zero value is usable; set
// Calibrations to have profiles report physical lengths.
type Analyzer struct {
	Calibrations *CalibrationSet
}

// NewAnalyzer returns an analyzer that reports lengths using cals, which
// may be nil.
func NewAnalyzer(cals *CalibrationSet) *Analyzer {
	return &Analyzer{Calibrations: cals}
}

// Recompute builds a fresh profile for the segment between the endpoints.
// Out-of-bounds or incomplete endpoints and segments shorter than two steps
// produce an invalid profile rather than an error.
func (an *Analyzer) Recompute(img image.Image, ep Endpoints, opts Options) *Profile {
	opts = opts.withDefaults()
	p := &Profile{
		Mode:      opts.Mode.String(),
		A:         ep.A,
		B:         ep.B,
		Threshold: opts.Threshold,
		MaxValue:  opts.MaxValue,
		Samples:   []Sample{},
		Events:    []EdgeEvent{},
	}

	bounds := img.Bounds()
	switch {
	case !ep.Complete():
		return p.invalid(ReasonIncomplete)
	case !InBounds(ep.A, bounds) || !InBounds(ep.B, bounds):
		return p.invalid(ReasonOutOfBounds)
	case StepCount(ep.A, ep.B) < 2:
		return p.invalid(ReasonTooShort)
	}

	samples := SampleLine(img, ep.A, ep.B)
	ReduceAll(samples, opts.MaxValue)

	p.Valid = true
	p.Samples = samples
	p.LengthPixels = math.Round(ep.A.Dist(ep.B)*100) / 100
	if an != nil && an.Calibrations != nil {
		if cal, ok := an.Calibrations.Active(); ok {
			um := math.Round(cal.Microns(ep.A.Dist(ep.B))*100) / 100
			p.LengthMicrons = &um
			p.Calibration = cal.Name
		}
	}

	if opts.Mode == ModeSwatch {
		p.Stats = Summarize(samples, nil)
		return p
	}

	p.Labels = Label(samples, opts.Threshold)
	if events := Classify(samples, opts.Threshold); events != nil {
		p.Events = events
	}
	p.Stats = Summarize(samples, p.Events)

	logger := Logger()
	logger.Debug("profile recomputed",
		slog.String("a", ep.A.String()),
		slog.String("b", ep.B.String()),
		slog.Int("samples", len(samples)),
		slog.Int("events", len(p.Events)))
	if opts.EmitLog {
		for _, e := range p.Events {
			logger.Info("edge",
				slog.Int("index", e.Index),
				slog.String("direction", e.Direction.String()),
				slog.Float64("x", e.Position.X),
				slog.Float64("y", e.Position.Y),
				slog.Float64("delta", e.Delta))
		}
	}
	return p
}

func (p *Profile) invalid(reason string) *Profile {
	p.Reason = reason
	Logger().Debug("profile skipped", slog.String("reason", reason))
	return p
}

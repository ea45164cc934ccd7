package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Calibration maps pixel lengths to physical lengths for one optical setup.
type Calibration struct {
	Name            string  `json:"name"`
	PixelsPerMicron float64 `json:"pixels_per_micron"`
}

// Microns converts a pixel length to micrometers.
func (c Calibration) Microns(pixels float64) float64 {
	if c.PixelsPerMicron <= 0 {
		return 0
	}
	return pixels / c.PixelsPerMicron
}

// CalibrationSet holds named calibrations and tracks the active one.
// Calibrations live in memory only. CalibrationSet is safe for concurrent use.
type CalibrationSet struct {
	mu     sync.RWMutex
	byName map[string]Calibration
	active string
}

// NewCalibrationSet returns an empty set with no active calibration.
func NewCalibrationSet() *CalibrationSet {
	return &CalibrationSet{byName: make(map[string]Calibration)}
}

// Add derives a calibration from a segment of known physical length. The
// ratio pixelLength/microns is rounded to three decimals and must stay
// positive after rounding. The new calibration becomes active when it is the
// first one in the set.
func (cs *CalibrationSet) Add(name string, pixelLength, microns float64) (Calibration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Calibration{}, fmt.Errorf("calibration name is required")
	}
	if microns <= 0 || math.IsNaN(microns) || math.IsInf(microns, 0) {
		return Calibration{}, fmt.Errorf("calibration %q: true length must be positive, got %v", name, microns)
	}
	if pixelLength <= 0 || math.IsNaN(pixelLength) || math.IsInf(pixelLength, 0) {
		return Calibration{}, fmt.Errorf("calibration %q: pixel length must be positive, got %v", name, pixelLength)
	}
	ratio := math.Round(pixelLength/microns*1000) / 1000
	if ratio <= 0 {
		return Calibration{}, fmt.Errorf("calibration %q: %v px over %v um is below 0.001 px/um", name, pixelLength, microns)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.byName[name]; exists {
		return Calibration{}, fmt.Errorf("calibration %q already exists", name)
	}

	cal := Calibration{
		Name:            name,
		PixelsPerMicron: ratio,
	}
	cs.byName[name] = cal
	if cs.active == "" {
		cs.active = name
	}
	return cal, nil
}

// Select makes the named calibration active.
func (cs *CalibrationSet) Select(name string) (Calibration, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cal, ok := cs.byName[name]
	if !ok {
		return Calibration{}, fmt.Errorf("unknown calibration: %s", name)
	}
	cs.active = name
	return cal, nil
}

// Active returns the active calibration, if any.
func (cs *CalibrationSet) Active() (Calibration, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	if cs.active == "" {
		return Calibration{}, false
	}
	cal, ok := cs.byName[cs.active]
	return cal, ok
}

// List returns all calibrations sorted by name.
func (cs *CalibrationSet) List() []Calibration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	list := make([]Calibration, 0, len(cs.byName))
	for _, cal := range cs.byName {
		list = append(list, cal)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

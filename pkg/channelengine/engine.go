// Package channelengine computes, for one directional (tx, rx) geometry, the
// path loss, delay spread, and dominant-path classification that feed the
// link-budget stack. It delegates to a ray tracer when a scene is loaded for
// the requested frequency, and falls back to free-space propagation
// otherwise. The ray tracer itself is an external collaborator: only the
// RayTracer interface is specified here, not its internals.
package channelengine

import (
	"fmt"
	"math"
	"sync"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/linkbudget"
)

// degeneratePathLossDB is reported when the solver returns no paths at all,
// per §4.2's "report a degenerate result rather than raising."
const degeneratePathLossDB = 200.0

const epsilon = 1e-12

// AntennaSpec is the minimal antenna description the engine needs: either a
// named pattern (gain implicit in the ray tracer's path coefficients) or an
// explicit scalar gain used only in free-space mode.
type AntennaSpec struct {
	Pattern      string
	GainDBi      float64
	HasPattern   bool
	Polarization string
}

// Geometry describes one endpoint: a position in meters and an antenna.
type Geometry struct {
	X, Y, Z float64
	Antenna AntennaSpec
}

// CIR is a channel impulse response: the {a_i, tau_i} sequence the ray
// tracer returns for one transmitter/receiver pair, plus path geometry.
type CIR struct {
	Paths []Path
}

// RayTracer is the external ray-tracing solver's contract. Implementations
// add a transmitter and receiver to an already-loaded scene in a
// single-antenna "synthetic array" configuration — callers may assume the
// returned CIR was produced by a 1x1 array regardless of how many physical
// elements a future antenna model might expose — and must remove both
// before returning, since scene geometry (but not added endpoints) persists
// across calls.
type RayTracer interface {
	// LoadScene installs (or replaces) the scene used for freqHz. Calling it
	// twice with the same (file, freqHz) is a no-op.
	LoadScene(file string, freqHz, bandwidthHz float64) error
	// UnloadScene drops the scene associated with freqHz, if any.
	UnloadScene(freqHz float64)
	// ComputePaths returns the CIR for one directional tx->rx geometry at
	// freqHz. The scene for freqHz must already be loaded.
	ComputePaths(freqHz float64, tx, rx Geometry) (CIR, error)
}

// Engine holds, per distinct carrier frequency, at most one loaded scene —
// loading a new scene for a frequency replaces the previous one.
type Engine struct {
	mu     sync.Mutex
	tracer RayTracer
	loaded map[float64]string // freqHz -> scene file, only entries with a real scene
}

// NewEngine wires a RayTracer implementation (ray-traced or fallback) into
// a fresh engine with no scenes loaded.
func NewEngine(tracer RayTracer) *Engine {
	return &Engine{
		tracer: tracer,
		loaded: make(map[float64]string),
	}
}

// LoadScene installs file as the scene for freqHz. Idempotent per
// (file, freqHz): loading the same pair twice leaves state unchanged.
func (e *Engine) LoadScene(file string, freqHz, bandwidthHz float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.loaded[freqHz]; ok && existing == file {
		return nil
	}
	if err := e.tracer.LoadScene(file, freqHz, bandwidthHz); err != nil {
		return classify.Scene(fmt.Errorf("load scene %s at %.0f Hz: %w", file, freqHz, err))
	}
	e.loaded[freqHz] = file
	return nil
}

// HasScene reports whether a scene is currently loaded for freqHz.
func (e *Engine) HasScene(freqHz float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.loaded[freqHz]
	return ok
}

// Compute returns the channel-computation result for one directional
// tx->rx geometry at freqHz. If a scene is loaded for freqHz, the ray
// tracer is invoked; otherwise free-space propagation is used.
func (e *Engine) Compute(freqHz, bandwidthHz float64, tx, rx Geometry) (Result, error) {
	distance := euclidean(tx, rx)

	e.mu.Lock()
	sceneFile, hasScene := e.loaded[freqHz]
	e.mu.Unlock()

	if !hasScene {
		return freeSpaceResult(distance, freqHz), nil
	}

	cir, err := e.tracer.ComputePaths(freqHz, tx, rx)
	if err != nil {
		return Result{}, classify.Channel(fmt.Errorf("ray trace %s at %.0f Hz: %w", sceneFile, freqHz, err))
	}
	if len(cir.Paths) == 0 {
		return degenerateResult(distance), nil
	}
	return rayTracedResult(distance, cir), nil
}

func euclidean(a, b Geometry) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func freeSpaceResult(distanceM, freqHz float64) Result {
	loss := linkbudget.FSPLdB(distanceM, freqHz)
	delayNs := (distanceM / 299792458.0) * 1e9
	return Result{
		PathLossDB:           loss,
		DelaySpreadNs:        0,
		DominantPathType:     LOS,
		DistanceM:            distanceM,
		StrongestPathPowerDB: -loss,
		StrongestPathDelayNs: delayNs,
		NumPaths:             1,
	}
}

func degenerateResult(distanceM float64) Result {
	return Result{
		PathLossDB:           degeneratePathLossDB,
		DelaySpreadNs:        0,
		DominantPathType:     NLOS,
		DistanceM:            distanceM,
		StrongestPathPowerDB: -degeneratePathLossDB,
		StrongestPathDelayNs: 0,
		NumPaths:             0,
	}
}

func rayTracedResult(distanceM float64, cir CIR) Result {
	var gain float64
	strongestIdx := 0
	strongestPower := math.Inf(-1)

	for i, p := range cir.Paths {
		mag2 := p.AmplitudeReal*p.AmplitudeReal + p.AmplitudeImag*p.AmplitudeImag
		gain += mag2
		if pw := powerDB(mag2); pw > strongestPower {
			strongestPower = pw
			strongestIdx = i
		}
	}

	lossDB := -10 * math.Log10(gain+epsilon)
	strongest := cir.Paths[strongestIdx]

	return Result{
		PathLossDB:           lossDB,
		DelaySpreadNs:        rmsDelaySpread(cir.Paths),
		DominantPathType:     classifyDominant(strongest),
		DistanceM:            distanceM,
		StrongestPathPowerDB: strongestPower,
		StrongestPathDelayNs: strongest.DelayNs,
		NumPaths:             len(cir.Paths),
		Paths:                cir.Paths,
	}
}

// rmsDelaySpread is the second central moment of the normalized power-delay
// profile; 0 for a single path.
func rmsDelaySpread(paths []Path) float64 {
	if len(paths) <= 1 {
		return 0
	}

	var totalPower float64
	powers := make([]float64, len(paths))
	for i, p := range paths {
		pw := p.AmplitudeReal*p.AmplitudeReal + p.AmplitudeImag*p.AmplitudeImag
		powers[i] = pw
		totalPower += pw
	}
	if totalPower <= 0 {
		return 0
	}

	var meanDelay float64
	for i, p := range paths {
		meanDelay += (powers[i] / totalPower) * p.DelayNs
	}

	var variance float64
	for i, p := range paths {
		d := p.DelayNs - meanDelay
		variance += (powers[i] / totalPower) * d * d
	}
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// classifyDominant examines the interactions of the strongest path: los if
// all are InteractionNone, diffraction if any diffraction code is present,
// nlos otherwise. When interactions are unreadable (nil), falls back to
// delay-based classification: los iff the strongest path's delay < 10 ns.
func classifyDominant(strongest Path) DominantPathType {
	if strongest.Interactions == nil {
		if strongest.DelayNs < 10 {
			return LOS
		}
		return NLOS
	}

	allNone := true
	anyDiffraction := false
	for _, in := range strongest.Interactions {
		if in != InteractionNone {
			allNone = false
		}
		if in == InteractionDiffraction {
			anyDiffraction = true
		}
	}
	switch {
	case allNone:
		return LOS
	case anyDiffraction:
		return Diffraction
	default:
		return NLOS
	}
}

func powerDB(linear float64) float64 {
	return 10 * math.Log10(linear+epsilon)
}

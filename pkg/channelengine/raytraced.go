package channelengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/jihwankim/wireless-emulator/pkg/linkbudget"
)

// FallbackRayTracer is the "fallback" variant of the engine's sum type: it
// never raises and never actually traces anything, returning a single
// free-space line-of-sight path for every geometry. It exists so an Engine
// can be constructed (and LoadScene called) in environments without a real
// ray-tracing solver, such as tests.
type FallbackRayTracer struct {
	mu     sync.Mutex
	loaded map[float64]string
}

// NewFallbackRayTracer creates a fallback tracer with no scenes loaded.
func NewFallbackRayTracer() *FallbackRayTracer {
	return &FallbackRayTracer{loaded: make(map[float64]string)}
}

// LoadScene always succeeds; the fallback tracer does not read the file.
func (f *FallbackRayTracer) LoadScene(file string, freqHz, bandwidthHz float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded[freqHz] = file
	return nil
}

// UnloadScene drops the bookkeeping entry for freqHz.
func (f *FallbackRayTracer) UnloadScene(freqHz float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.loaded, freqHz)
}

// ComputePaths returns a single LOS path at free-space loss and propagation delay.
func (f *FallbackRayTracer) ComputePaths(freqHz float64, tx, rx Geometry) (CIR, error) {
	distance := euclidean(tx, rx)
	lossDB := linkbudget.FSPLdB(distance, freqHz)
	amplitude := dBToAmplitude(-lossDB)
	delayNs := (distance / 299792458.0) * 1e9

	return CIR{Paths: []Path{
		{
			AmplitudeReal: amplitude,
			AmplitudeImag: 0,
			DelayNs:       delayNs,
			Interactions:  []InteractionType{InteractionNone},
		},
	}}, nil
}

func dBToAmplitude(db float64) float64 {
	// |a|^2 = 10^(db/10) => |a| = 10^(db/20)
	return math.Pow(10, db/20)
}

// HTTPRayTracer is the "ray-traced" variant of the engine's sum type: it
// delegates scene loading and path computation to an out-of-process solver
// (e.g. a Sionna-backed service) over HTTP. No such solver ships with this
// module; this type only specifies the wire contract the engine depends on.
type HTTPRayTracer struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRayTracer creates a tracer client with a bounded request timeout.
func NewHTTPRayTracer(baseURL string, timeout time.Duration) *HTTPRayTracer {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRayTracer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type loadSceneRequest struct {
	File        string  `json:"file"`
	FrequencyHz float64 `json:"frequency_hz"`
	BandwidthHz float64 `json:"bandwidth_hz"`
}

// LoadScene asks the external solver to install file as the scene for freqHz.
func (h *HTTPRayTracer) LoadScene(file string, freqHz, bandwidthHz float64) error {
	body, err := json.Marshal(loadSceneRequest{File: file, FrequencyHz: freqHz, BandwidthHz: bandwidthHz})
	if err != nil {
		return err
	}
	resp, err := h.Client.Post(h.BaseURL+"/scene/load", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ray tracer load scene: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ray tracer load scene: status %d", resp.StatusCode)
	}
	return nil
}

// UnloadScene asks the external solver to drop the scene for freqHz.
func (h *HTTPRayTracer) UnloadScene(freqHz float64) {
	body, _ := json.Marshal(map[string]float64{"frequency_hz": freqHz})
	resp, err := h.Client.Post(h.BaseURL+"/scene/unload", "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

type computePathsRequest struct {
	FrequencyHz float64      `json:"frequency_hz"`
	Tx          geometryWire `json:"tx"`
	Rx          geometryWire `json:"rx"`
}

type geometryWire struct {
	X, Y, Z float64
	Antenna string `json:"antenna_pattern,omitempty"`
}

type pathWire struct {
	AmplitudeReal float64    `json:"amplitude_real"`
	AmplitudeImag float64    `json:"amplitude_imag"`
	DelayNs       float64    `json:"delay_ns"`
	Interactions  []int      `json:"interactions"`
	Vertices      [][3]float64 `json:"vertices"`
}

type computePathsResponse struct {
	Paths []pathWire `json:"paths"`
}

// ComputePaths asks the external solver for the CIR between tx and rx at
// freqHz. The scene for freqHz must already have been loaded.
func (h *HTTPRayTracer) ComputePaths(freqHz float64, tx, rx Geometry) (CIR, error) {
	req := computePathsRequest{
		FrequencyHz: freqHz,
		Tx:          geometryWire{X: tx.X, Y: tx.Y, Z: tx.Z, Antenna: tx.Antenna.Pattern},
		Rx:          geometryWire{X: rx.X, Y: rx.Y, Z: rx.Z, Antenna: rx.Antenna.Pattern},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return CIR{}, err
	}
	resp, err := h.Client.Post(h.BaseURL+"/compute/paths", "application/json", bytes.NewReader(body))
	if err != nil {
		return CIR{}, fmt.Errorf("ray tracer compute paths: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CIR{}, fmt.Errorf("ray tracer compute paths: status %d", resp.StatusCode)
	}

	var out computePathsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CIR{}, fmt.Errorf("ray tracer compute paths: decode response: %w", err)
	}

	paths := make([]Path, 0, len(out.Paths))
	for _, pw := range out.Paths {
		interactions := make([]InteractionType, len(pw.Interactions))
		for i, code := range pw.Interactions {
			interactions[i] = InteractionType(code)
		}
		vertices := make([]Vertex, len(pw.Vertices))
		for i, v := range pw.Vertices {
			vertices[i] = Vertex{X: v[0], Y: v[1], Z: v[2]}
		}
		paths = append(paths, Path{
			AmplitudeReal: pw.AmplitudeReal,
			AmplitudeImag: pw.AmplitudeImag,
			DelayNs:       pw.DelayNs,
			Interactions:  interactions,
			Vertices:      vertices,
		})
	}
	return CIR{Paths: paths}, nil
}

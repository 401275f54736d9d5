// Package interference aggregates co- and adjacent-channel interference
// power at one receiver from a set of candidate transmitters, applying
// ACLR rejection and an optional MAC-supplied transmission probability,
// and derives SINR.
package interference

import (
	"fmt"
	"math"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
)

// aclrTable is the piecewise-constant default rejection, aligned with a
// representative spectral mask. Thresholds are upper bounds on |Δf| in Hz.
var aclrTable = []struct {
	upToHz float64
	aclrDB float64
}{
	{10e6, 0},
	{20e6, 20},
	{30e6, 28},
	{40e6, 40},
	{math.Inf(1), 45}, // > 40 MHz, treated as orthogonal
}

// ACLRdB returns the adjacent-channel rejection for an absolute carrier
// separation of deltaFHz.
func ACLRdB(deltaFHz float64) float64 {
	d := math.Abs(deltaFHz)
	for _, row := range aclrTable {
		if d <= row.upToHz {
			return row.aclrDB
		}
	}
	return aclrTable[len(aclrTable)-1].aclrDB
}

// OrthogonalThresholdHz is the separation beyond which an interferer
// contributes nothing measurable after ACLR; implementations may skip
// ray-tracing such pairs entirely.
const OrthogonalThresholdHz = 40e6

// Interferer is one candidate transmitter considered for a given receiver.
type Interferer struct {
	ID            string
	Position      channelengine.Geometry
	TxPowerDBm    float64
	FrequencyHz   float64
	Active        bool    // the interface's is_active flag
	TxProbability float64 // MAC-supplied multiplier; 1 if no MAC model configured
}

// Breakdown reports one interferer's contribution for visualization/debugging.
type Breakdown struct {
	ID                    string
	RawPowerDBm           float64
	FrequencySeparationHz float64
	ACLRAppliedDB         float64
	EffectivePowerDBm     float64
}

// Result is the SINR result defined in §3.
type Result struct {
	SignalPowerDBm        float64
	NoiseFloorDBm         float64
	InterferencePowerDBm  float64
	SINRdB                float64
	NumActiveInterferers  int
	Breakdown             []Breakdown
}

// Engine computes SINR at one receiver by delegating per-interferer path
// loss to a channel engine.
type Engine struct {
	channel *channelengine.Engine
}

// NewEngine wires a channel engine for interferer-to-receiver path loss.
func NewEngine(channel *channelengine.Engine) *Engine {
	return &Engine{channel: channel}
}

// Aggregate computes the SINR at a receiver. rxFreqHz/rxBandwidthHz are the
// receiver's own carrier parameters, used for every interferer geometry
// computation per §4.3 step 1. rxSensitivityDBm filters negligible
// interferers; interferers with Active == false or TxProbability == 0 are
// skipped entirely (§9: is_active false is equivalent to tx_probability 0).
func (e *Engine) Aggregate(rx channelengine.Geometry, rxFreqHz, rxBandwidthHz, signalPowerDBm, noiseFloorDBm, rxSensitivityDBm float64, interferers []Interferer) (Result, error) {
	var totalLinear float64
	breakdown := make([]Breakdown, 0, len(interferers))
	active := 0

	for _, in := range interferers {
		if !in.Active || in.TxProbability == 0 {
			continue
		}

		chResult, err := e.channel.Compute(rxFreqHz, rxBandwidthHz, in.Position, rx)
		if err != nil {
			// §4.3/§7: a single interferer's geometry failure is sinr_error and
			// skips that interferer, not the whole link.
			_ = classify.SINR(fmt.Errorf("interferer %s: %w", in.ID, err))
			continue
		}

		rawDBm := in.TxPowerDBm - chResult.PathLossDB
		deltaF := in.FrequencyHz - rxFreqHz
		aclr := ACLRdB(deltaF)
		effectiveDBm := rawDBm - aclr

		if effectiveDBm < rxSensitivityDBm {
			continue
		}

		linear := math.Pow(10, effectiveDBm/10) * in.TxProbability
		totalLinear += linear
		active++

		breakdown = append(breakdown, Breakdown{
			ID:                    in.ID,
			RawPowerDBm:           rawDBm,
			FrequencySeparationHz: deltaF,
			ACLRAppliedDB:         aclr,
			EffectivePowerDBm:     effectiveDBm,
		})
	}

	var interferenceDBm float64
	if totalLinear > 0 {
		interferenceDBm = 10 * math.Log10(totalLinear)
	} else {
		interferenceDBm = math.Inf(-1)
	}

	sinr := signalPowerDBm - 10*math.Log10(math.Pow(10, noiseFloorDBm/10)+totalLinear)

	return Result{
		SignalPowerDBm:       signalPowerDBm,
		NoiseFloorDBm:        noiseFloorDBm,
		InterferencePowerDBm: interferenceDBm,
		SINRdB:               sinr,
		NumActiveInterferers: active,
		Breakdown:            breakdown,
	}, nil
}

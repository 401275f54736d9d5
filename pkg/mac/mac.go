// Package mac implements the statistical (not discrete-event) MAC models:
// CSMA/CA carrier-sense deferral and TDMA slot-ownership. Each produces a
// per-(receiver, interferer) transmission-probability multiplier consumed
// by the interference engine. The set of models is closed, per the design
// notes: none | csma | tdma, selected by a small switch at the call site
// rather than open-world polymorphism.
package mac

import "github.com/jihwankim/wireless-emulator/pkg/topology"

// Kind identifies which statistical MAC model governs an interface.
type Kind string

const (
	None Kind = "none"
	CSMA Kind = "csma"
	TDMA Kind = "tdma"
)

// KindOf returns the MAC kind configured on w, or None if neither is set.
func KindOf(w *topology.Wireless) Kind {
	switch {
	case w.CSMA != nil:
		return CSMA
	case w.TDMA != nil:
		return TDMA
	default:
		return None
	}
}

// Endpoint is the minimal geometry+config a MAC model needs for one interface.
type Endpoint struct {
	X, Y, Z    float64
	TxPowerDBm float64
	CSMA       *topology.CSMAConfig
	TDMA       *topology.TDMAConfig
}

// TxProbability returns the probability that interferer transmits
// concurrently as seen by receiver, given the MAC kind governing them.
// None (no MAC model configured) always returns 1 — worst case, matching
// the default-active transmission-state assumption in §3.
func TxProbability(kind Kind, freqHz, rxSensitivityDBm float64, receiver, interferer Endpoint) float64 {
	switch kind {
	case CSMA:
		return csmaTxProbability(freqHz, rxSensitivityDBm, receiver, interferer)
	case TDMA:
		return tdmaTxProbability(receiver.TDMA, interferer.TDMA)
	default:
		return 1
	}
}

func intersects(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

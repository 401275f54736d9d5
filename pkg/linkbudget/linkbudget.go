// Package linkbudget turns raw channel geometry (path loss, distance) into
// SNR, BER/BLER/PER, effective rate, and a selected MCS index. All formulas
// are closed-form AWGN approximations documented inline; none assume
// Shannon-limit behavior.
package linkbudget

import "math"

// Modulation identifies a constellation used for BER approximation.
type Modulation string

const (
	BPSK    Modulation = "bpsk"
	QPSK    Modulation = "qpsk"
	QAM16   Modulation = "16qam"
	QAM64   Modulation = "64qam"
	QAM256  Modulation = "256qam"
	QAM1024 Modulation = "1024qam"
	QAM4096 Modulation = "4096qam"
)

// BitsPerSymbol returns log2(M) for the constellation, 1 for BPSK.
func (m Modulation) BitsPerSymbol() float64 {
	switch m {
	case BPSK:
		return 1
	case QPSK:
		return 2
	case QAM16:
		return 4
	case QAM64:
		return 6
	case QAM256:
		return 8
	case QAM1024:
		return 10
	case QAM4096:
		return 12
	default:
		return 1
	}
}

// FECType names a forward-error-correction family; the only effect modeled
// here is an additive coding-gain constant applied to SNR before BER.
type FECType string

const (
	FECNone  FECType = "none"
	FECLDPC  FECType = "ldpc"
	FECPolar FECType = "polar"
	FECTurbo FECType = "turbo"
)

// codingGainDB are conservative empirical constants, not derived from the
// Shannon limit; callers must not extrapolate beyond documented modulations.
var codingGainDB = map[FECType]float64{
	FECNone:  0.0,
	FECLDPC:  6.5,
	FECPolar: 6.0,
	FECTurbo: 5.5,
}

// OFDMEfficiency is the product of ~94% symbol efficiency and ~85% protocol
// efficiency for a representative 802.11ax configuration.
const OFDMEfficiency = 0.8

const speedOfLightMps = 299792458.0

// NoiseFloorDBm computes N_dBm = -174 + 10*log10(BW_Hz) + NF_dB.
func NoiseFloorDBm(bandwidthHz, noiseFigureDB float64) float64 {
	return -174 + 10*math.Log10(bandwidthHz) + noiseFigureDB
}

// FSPLdB computes 20*log10(d) + 20*log10(f) - 147.55, guarding d == 0.
func FSPLdB(distanceM, freqHz float64) float64 {
	d := distanceM
	if d <= 0 {
		d = 1e-3 // 1 mm floor; keeps log10 finite so path loss stays bounded
	}
	return 20*math.Log10(d) + 20*math.Log10(freqHz) - 147.55
}

// ReceivedPowerRayTraced applies P_rx = P_tx - channel_loss. Antenna gains
// are already folded into channel_loss as returned by the ray tracer;
// adding explicit antenna gains here would double-count them.
func ReceivedPowerRayTraced(txPowerDBm, channelLossDB float64) float64 {
	return txPowerDBm - channelLossDB
}

// ReceivedPowerFreeSpace applies P_rx = P_tx + G_tx + G_rx - FSPL(d, f).
func ReceivedPowerFreeSpace(txPowerDBm, txGainDBi, rxGainDBi, distanceM, freqHz float64) float64 {
	return txPowerDBm + txGainDBi + rxGainDBi - FSPLdB(distanceM, freqHz)
}

// PropagationDelayMs returns distance / c in milliseconds.
func PropagationDelayMs(distanceM float64) float64 {
	return (distanceM / speedOfLightMps) * 1000
}

// SNRdB returns P_rx - N_dBm.
func SNRdB(rxPowerDBm, noiseFloorDBm float64) float64 {
	return rxPowerDBm - noiseFloorDBm
}

// qFunction is the Gaussian Q-function, Q(x) = 0.5*erfc(x/sqrt(2)).
func qFunction(x float64) float64 {
	return 0.5 * math.Erfc(x/math.Sqrt2)
}

// dBToLinear converts a dB value to a linear ratio.
func dBToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

// codingGainFactor scales the nominal coding gain by how far the code rate
// deviates from 1/2: the gain is documented for a rate-1/2 code, and tapers
// smoothly toward the extremes.
func codingGainFactor(codeRate float64) float64 {
	dev := math.Abs(codeRate - 0.5)
	factor := 1 - 0.6*dev // smooth taper, full gain at rate 1/2
	if factor < 0.4 {
		factor = 0.4
	}
	return factor
}

// CodingGainDB returns the additive SNR offset applied before computing BER.
func CodingGainDB(fec FECType, codeRate float64) float64 {
	base, ok := codingGainDB[fec]
	if !ok {
		base = 0
	}
	if base == 0 {
		return 0
	}
	return base * codingGainFactor(codeRate)
}

// BER approximates bit error rate in AWGN for the given modulation, linear
// SNR (not dB), after coding gain has already been added to the SNR used here.
func BER(mod Modulation, snrLinear float64) float64 {
	if snrLinear <= 0 {
		return 0.5
	}
	switch mod {
	case BPSK, QPSK:
		return qFunction(math.Sqrt(2 * snrLinear))
	default:
		k := mod.BitsPerSymbol()
		M := math.Pow(2, k)
		return (4 / k) * (1 - 1/math.Sqrt(M)) * qFunction(math.Sqrt(3*snrLinear/(M-1)))
	}
}

// BLER derives block error rate from BER over an L-bit code block.
func BLER(ber float64, blockBits int) float64 {
	return 1 - math.Pow(1-ber, float64(blockBits))
}

// PER derives packet error rate from BER over a packet of packetBits bits,
// clamped to [0, 1]. Below 1e-12 BER the first-order approximation
// packetBits*BER is used to avoid cancellation in (1-BER)^n.
func PER(ber float64, packetBits int) float64 {
	var per float64
	if ber < 1e-12 {
		per = float64(packetBits) * ber
	} else {
		per = 1 - math.Pow(1-ber, float64(packetBits))
	}
	if per < 0 {
		per = 0
	}
	if per > 1 {
		per = 1
	}
	return per
}

// EffectiveRateMbps computes the usable throughput after PER, optionally
// dividing by a direct-sequence spreading factor (0 or 1 disables spreading).
func EffectiveRateMbps(bandwidthHz float64, mod Modulation, codeRate, per float64, spreadingFactor int) float64 {
	rate := bandwidthHz * mod.BitsPerSymbol() * codeRate * OFDMEfficiency * (1 - per) / 1e6
	if spreadingFactor > 1 {
		rate /= float64(spreadingFactor)
	}
	return rate
}

// JitterPolicy maps RMS delay spread and MCS robustness to a jitter estimate
// in milliseconds. Documented in the design notes as an open-loop heuristic,
// not derived from first principles; replaceable by callers that have a
// better (e.g. retry-driven) model.
type JitterPolicy func(rmsDelaySpreadNs float64, mcsIndex, mcsTableSize int) float64

// DefaultJitterPolicy divides k*sqrt(delay spread) by how robust (low) the
// selected MCS index is within its table: robustness runs from 1 at the
// lowest index down to 0.5 at the highest, so a lower-index MCS yields less
// jitter and the highest index yields twice the lowest index's jitter.
func DefaultJitterPolicy(rmsDelaySpreadNs float64, mcsIndex, mcsTableSize int) float64 {
	if rmsDelaySpreadNs <= 0 {
		return 0
	}
	robustness := 1.0
	if mcsTableSize > 1 {
		robustness = 1 - float64(mcsIndex)/float64(mcsTableSize-1)*0.5
	}
	const k = 0.15
	return k * math.Sqrt(rmsDelaySpreadNs) / robustness
}

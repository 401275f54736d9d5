package mac

import "math"

// csmaTxProbability implements §4.4's statistical CSMA/CA model: the
// interferer's nominal communication range is the distance at which its own
// transmit power, attenuated by free-space path loss, would just reach the
// receiver's sensitivity threshold. The carrier-sense range scales that
// nominal range by the configured multiplier (default 2.5). If the
// receiver falls within the interferer's carrier-sense range, the
// interferer is assumed to sense the receiver's own traffic and defer —
// contributing no interference. Otherwise it is a hidden node, transmitting
// independently at its configured duty-cycle fraction.
func csmaTxProbability(freqHz, rxSensitivityDBm float64, receiver, interferer Endpoint) float64 {
	nominalRangeM := communicationRangeM(interferer.TxPowerDBm, rxSensitivityDBm, freqHz)
	senseRangeM := interferer.CSMA.CarrierSenseMultiplierOrDefault() * nominalRangeM

	dx, dy, dz := receiver.X-interferer.X, receiver.Y-interferer.Y, receiver.Z-interferer.Z
	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)

	if distance <= senseRangeM {
		return 0
	}
	return interferer.CSMA.TrafficLoadOrDefault()
}

// communicationRangeM inverts the free-space path-loss formula to find the
// distance at which txPowerDBm attenuates down to rxSensitivityDBm.
func communicationRangeM(txPowerDBm, rxSensitivityDBm, freqHz float64) float64 {
	requiredLossDB := txPowerDBm - rxSensitivityDBm
	if requiredLossDB <= 0 {
		return 0
	}
	// FSPL(d,f) = 20log10(d) + 20log10(f) - 147.55 = requiredLossDB
	exponent := (requiredLossDB - 20*math.Log10(freqHz) + 147.55) / 20
	return math.Pow(10, exponent)
}

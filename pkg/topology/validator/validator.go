// Package validator performs the static topology_error checks required
// before a deployment may proceed: duplicate names, IP conflicts,
// mutually-exclusive fields, and mixed MAC models on one frequency.
package validator

import (
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// Validator accumulates fatal errors and non-fatal warnings across one topology.
type Validator struct {
	Warnings []string
	Errors   []string
}

// New creates a validator.
func New() *Validator {
	return &Validator{
		Warnings: make([]string, 0),
		Errors:   make([]string, 0),
	}
}

// Validate runs every static check against t. A non-nil error means the
// topology must be rejected; warnings never block deployment.
func (v *Validator) Validate(t *topology.Topology) error {
	v.Warnings = v.Warnings[:0]
	v.Errors = v.Errors[:0]

	v.validateNodes(t)
	v.validateAntennaExclusion(t)
	v.validateSharedBridge(t)
	v.validateLinks(t)
	v.validateIPUniqueness(t)
	v.validateMACModelMixing(t)

	if len(v.Errors) > 0 {
		return fmt.Errorf("topology_error: validation failed with %d errors", len(v.Errors))
	}
	return nil
}

// HasWarnings reports whether any non-fatal issues were found.
func (v *Validator) HasWarnings() bool { return len(v.Warnings) > 0 }

// HasErrors reports whether any fatal issues were found.
func (v *Validator) HasErrors() bool { return len(v.Errors) > 0 }

// Report renders errors and warnings as a human-readable summary.
func (v *Validator) Report() string {
	var sb strings.Builder
	if len(v.Errors) > 0 {
		sb.WriteString("ERRORS:\n")
		for _, e := range v.Errors {
			sb.WriteString(fmt.Sprintf("  - %s\n", e))
		}
	}
	if len(v.Warnings) > 0 {
		sb.WriteString("\nWARNINGS:\n")
		for _, w := range v.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}
	if len(v.Errors) == 0 && len(v.Warnings) == 0 {
		sb.WriteString("Validation passed with no issues.\n")
	}
	return sb.String()
}

func (v *Validator) validateNodes(t *topology.Topology) {
	if len(t.Nodes) == 0 {
		v.Errors = append(v.Errors, "nodes must have at least one entry")
		return
	}
	for name, n := range t.Nodes {
		if len(n.Interfaces) == 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("nodes.%s has no interfaces", name))
		}
	}
}

func (v *Validator) validateAntennaExclusion(t *topology.Topology) {
	forEachWireless(t, func(node, iface string, w *topology.Wireless) {
		hasPattern := w.Antenna.Pattern != ""
		hasGain := w.Antenna.GainDBi != nil
		if hasPattern == hasGain {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"%s.%s.antenna: exactly one of pattern or gain_dbi is required", node, iface))
		}
		switch w.Antenna.Polarization {
		case "", "V", "H", "VH", "cross":
		default:
			v.Errors = append(v.Errors, fmt.Sprintf(
				"%s.%s.antenna.polarization '%s' is invalid (expected V, H, VH, or cross)",
				node, iface, w.Antenna.Polarization))
		}

		fixedSet := w.Modulation != ""
		adaptiveSet := w.MCSTable != ""
		if fixedSet == adaptiveSet {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"%s.%s: exactly one of {modulation,fec_type,fec_code_rate} or {mcs_table,mcs_hysteresis_db} is required",
				node, iface))
		}

		if w.RFPowerDBm < -30 || w.RFPowerDBm > 40 {
			v.Errors = append(v.Errors, fmt.Sprintf("%s.%s.rf_power_dbm must be in [-30, 40]", node, iface))
		}
		if w.NoiseFigureDB < 0 || w.NoiseFigureDB > 20 {
			v.Errors = append(v.Errors, fmt.Sprintf("%s.%s.noise_figure_db must be in [0, 20]", node, iface))
		}
		if w.RxSensitivityDBm > 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("%s.%s.rx_sensitivity_dbm must be <= 0", node, iface))
		}
		if w.PacketSizeBits <= 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("%s.%s.packet_size_bits must be > 0", node, iface))
		}
	})
}

func (v *Validator) validateSharedBridge(t *topology.Topology) {
	if !t.SharedBridgeMode() {
		return
	}
	if len(t.Links) > 0 {
		v.Errors = append(v.Errors, "links is mutually exclusive with shared_bridge")
	}
	if t.SharedBridge.Name == "" {
		v.Errors = append(v.Errors, "shared_bridge.name is required")
	}
	if len(t.SharedBridge.Nodes) == 0 {
		v.Errors = append(v.Errors, "shared_bridge.nodes must have at least one entry")
	}

	for _, nodeName := range t.SharedBridge.Nodes {
		n, ok := t.Nodes[nodeName]
		if !ok {
			v.Errors = append(v.Errors, fmt.Sprintf("shared_bridge.nodes references unknown node: %s", nodeName))
			continue
		}
		iface, ok := n.Interfaces[t.SharedBridge.InterfaceName]
		if !ok {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"node %s has no interface named %s for shared_bridge", nodeName, t.SharedBridge.InterfaceName))
			continue
		}
		if iface.Wireless == nil {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"node %s's shared_bridge interface must be wireless (no mixed wireless/fixed participants)", nodeName))
			continue
		}
		if iface.IPAddress == "" {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"node %s's shared_bridge interface requires ip_address", nodeName))
		}
	}
}

func (v *Validator) validateLinks(t *topology.Topology) {
	for i, l := range t.Links {
		if t.Interface(l.A.Node, l.A.Interface) == nil {
			v.Errors = append(v.Errors, fmt.Sprintf("links[%d].a references unknown interface %s.%s", i, l.A.Node, l.A.Interface))
		}
		if t.Interface(l.B.Node, l.B.Interface) == nil {
			v.Errors = append(v.Errors, fmt.Sprintf("links[%d].b references unknown interface %s.%s", i, l.B.Node, l.B.Interface))
		}
	}
}

func (v *Validator) validateIPUniqueness(t *topology.Topology) {
	seen := make(map[string]string)
	forEachInterface(t, func(node, iface string, i topology.Interface) {
		if i.IPAddress == "" {
			return
		}
		if net.ParseIP(i.IPAddress) == nil {
			v.Errors = append(v.Errors, fmt.Sprintf("%s.%s.ip_address '%s' is not a valid IP", node, iface, i.IPAddress))
			return
		}
		key := fmt.Sprintf("%s.%s", node, iface)
		if owner, dup := seen[i.IPAddress]; dup {
			v.Errors = append(v.Errors, fmt.Sprintf("ip_address %s is used by both %s and %s", i.IPAddress, owner, key))
			return
		}
		seen[i.IPAddress] = key
	})
}

func (v *Validator) validateMACModelMixing(t *topology.Topology) {
	type macKind int
	const (
		macNone macKind = iota
		macCSMA
		macTDMA
	)

	byFrequency := make(map[float64]map[macKind]bool)
	forEachWireless(t, func(node, iface string, w *topology.Wireless) {
		kind := macNone
		switch {
		case w.CSMA != nil:
			kind = macCSMA
		case w.TDMA != nil:
			kind = macTDMA
		}
		if byFrequency[w.FrequencyGHz] == nil {
			byFrequency[w.FrequencyGHz] = make(map[macKind]bool)
		}
		byFrequency[w.FrequencyGHz][kind] = true
	})

	freqs := make([]float64, 0, len(byFrequency))
	for f := range byFrequency {
		freqs = append(freqs, f)
	}
	sort.Float64s(freqs)

	for _, f := range freqs {
		kinds := byFrequency[f]
		if kinds[macCSMA] && kinds[macTDMA] {
			v.Errors = append(v.Errors, fmt.Sprintf(
				"mixed MAC models (csma and tdma) on the same frequency (%.3f GHz) are rejected", f))
		}
	}
}

func forEachInterface(t *topology.Topology, fn func(node, iface string, i topology.Interface)) {
	names := make([]string, 0, len(t.Nodes))
	for n := range t.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, node := range names {
		n := t.Nodes[node]
		ifaceNames := make([]string, 0, len(n.Interfaces))
		for i := range n.Interfaces {
			ifaceNames = append(ifaceNames, i)
		}
		sort.Strings(ifaceNames)
		for _, ifaceName := range ifaceNames {
			fn(node, ifaceName, n.Interfaces[ifaceName])
		}
	}
}

func forEachWireless(t *topology.Topology, fn func(node, iface string, w *topology.Wireless)) {
	forEachInterface(t, func(node, iface string, i topology.Interface) {
		if i.Wireless != nil {
			fn(node, iface, i.Wireless)
		}
	})
}

// Package topology holds the declarative lab description: nodes, their
// wireless or fixed interfaces, explicit point-to-point links or a shared
// broadcast domain, and the scene used by the channel engine.
package topology

// Topology is the root of a lab descriptor.
type Topology struct {
	Name         string        `yaml:"name"`
	Prefix       string        `yaml:"prefix,omitempty"`
	Scene        SceneRef      `yaml:"scene"`
	SharedBridge *SharedBridge `yaml:"shared_bridge,omitempty"`
	Nodes        map[string]Node `yaml:"nodes"`
	Links        []Link        `yaml:"links,omitempty"`
	EnableSINR   bool          `yaml:"enable_sinr,omitempty"`
}

// SceneRef points at the ray-tracer scene file loaded by the channel service.
type SceneRef struct {
	File string `yaml:"file"`
}

// SharedBridge describes an L2 broadcast domain joining a set of nodes.
type SharedBridge struct {
	Enabled       bool     `yaml:"enabled"`
	Name          string   `yaml:"name"`
	Nodes         []string `yaml:"nodes"`
	InterfaceName string   `yaml:"interface_name"`
}

// Node is one declared container.
type Node struct {
	Kind       string               `yaml:"kind"`
	Image      string               `yaml:"image"`
	Interfaces map[string]Interface `yaml:"interfaces"`
}

// Interface is either wireless (channel-computed) or fixed (static netem).
type Interface struct {
	IPAddress  string      `yaml:"ip_address,omitempty"`
	Wireless   *Wireless   `yaml:"wireless,omitempty"`
	FixedNetem *FixedNetem `yaml:"fixed_netem,omitempty"`
}

// FixedNetem is a static netem profile for a non-wireless interface.
type FixedNetem struct {
	DelayMs     float64 `yaml:"delay_ms"`
	JitterMs    float64 `yaml:"jitter_ms,omitempty"`
	LossPercent float64 `yaml:"loss_percent,omitempty"`
	RateMbps    float64 `yaml:"rate_mbps"`
}

// Position is a point in meters. Mutable via the mobility API.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Antenna is exactly one of a named pattern or an explicit dBi gain.
type Antenna struct {
	Pattern      string   `yaml:"pattern,omitempty"`
	GainDBi      *float64 `yaml:"gain_dbi,omitempty"`
	Polarization string   `yaml:"polarization,omitempty"`
}

// HasPattern reports whether the antenna gain is implicit in the ray tracer's
// path coefficients rather than an explicit scalar.
func (a Antenna) HasPattern() bool {
	return a.Pattern != ""
}

// Wireless describes one directional wireless endpoint.
type Wireless struct {
	Position         Position `yaml:"position"`
	RFPowerDBm       float64  `yaml:"rf_power_dbm"`
	FrequencyGHz     float64  `yaml:"frequency_ghz"`
	BandwidthMHz     float64  `yaml:"bandwidth_mhz"`
	NoiseFigureDB    float64  `yaml:"noise_figure_db"`
	RxSensitivityDBm float64  `yaml:"rx_sensitivity_dbm"`
	Antenna          Antenna  `yaml:"antenna"`

	// Fixed modulation (mutually exclusive with the adaptive MCS table below).
	Modulation  string  `yaml:"modulation,omitempty"`
	FECType     string  `yaml:"fec_type,omitempty"`
	FECCodeRate float64 `yaml:"fec_code_rate,omitempty"`

	// Adaptive MCS (mutually exclusive with the fixed modulation above).
	MCSTable        string  `yaml:"mcs_table,omitempty"`
	MCSHysteresisDB float64 `yaml:"mcs_hysteresis_db,omitempty"`

	PacketSizeBits int `yaml:"packet_size_bits"`

	CSMA *CSMAConfig `yaml:"csma,omitempty"`
	TDMA *TDMAConfig `yaml:"tdma,omitempty"`

	IsActive *bool `yaml:"is_active,omitempty"`
}

// Adaptive reports whether this endpoint uses the MCS table rather than a
// fixed modulation/code-rate pair.
func (w *Wireless) Adaptive() bool {
	return w.MCSTable != ""
}

// Active returns the resolved is_active flag; the default is true (worst case).
func (w *Wireless) Active() bool {
	if w.IsActive == nil {
		return true
	}
	return *w.IsActive
}

// Hysteresis returns the configured MCS hysteresis, defaulting to 2 dB.
func (w *Wireless) Hysteresis() float64 {
	if w.MCSHysteresisDB == 0 {
		return 2.0
	}
	return w.MCSHysteresisDB
}

// CSMAConfig parametrizes the statistical CSMA/CA MAC model.
type CSMAConfig struct {
	CarrierSenseMultiplier float64 `yaml:"carrier_sense_multiplier,omitempty"`
	TrafficLoad            float64 `yaml:"traffic_load,omitempty"`
}

// CarrierSenseMultiplierOrDefault returns the configured multiplier, defaulting to 2.5.
func (c *CSMAConfig) CarrierSenseMultiplierOrDefault() float64 {
	if c == nil || c.CarrierSenseMultiplier == 0 {
		return 2.5
	}
	return c.CarrierSenseMultiplier
}

// TrafficLoadOrDefault returns the configured duty-cycle fraction, defaulting to 0.3.
func (c *CSMAConfig) TrafficLoadOrDefault() float64 {
	if c == nil || c.TrafficLoad == 0 {
		return 0.3
	}
	return c.TrafficLoad
}

// TDMAConfig parametrizes the statistical TDMA MAC model.
type TDMAConfig struct {
	FrameDurationMs          float64 `yaml:"frame_duration_ms"`
	NumSlots                 int     `yaml:"num_slots"`
	SlotAssignmentMode       string  `yaml:"slot_assignment_mode"`
	SlotMap                  []int   `yaml:"slot_map,omitempty"`
	SlotOwnershipProbability float64 `yaml:"slot_ownership_probability,omitempty"`
}

// Link is an explicit point-to-point pair of interface endpoints.
type Link struct {
	A Endpoint `yaml:"a"`
	B Endpoint `yaml:"b"`
}

// Endpoint identifies one interface of one node.
type Endpoint struct {
	Node      string `yaml:"node"`
	Interface string `yaml:"interface"`
}

// Interface looks up an interface by node/interface name, nil if absent.
func (t *Topology) Interface(node, iface string) *Interface {
	n, ok := t.Nodes[node]
	if !ok {
		return nil
	}
	i, ok := n.Interfaces[iface]
	if !ok {
		return nil
	}
	return &i
}

// SharedBridgeMode reports whether the topology uses the shared-broadcast-domain layout.
func (t *Topology) SharedBridgeMode() bool {
	return t.SharedBridge != nil && t.SharedBridge.Enabled
}

package channelservice

// Point is a position in meters, as carried over the wire.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AntennaWire mirrors topology.Antenna for the HTTP boundary.
type AntennaWire struct {
	Pattern      string   `json:"pattern,omitempty"`
	GainDBi      *float64 `json:"gain_dbi,omitempty"`
	Polarization string   `json:"polarization,omitempty"`
}

// FixedMCS carries a fixed modulation/code-rate/FEC assignment.
type FixedMCS struct {
	Modulation  string  `json:"modulation"`
	FECType     string  `json:"fec_type"`
	FECCodeRate float64 `json:"fec_code_rate"`
}

// AdaptiveMCS references an MCS table by name and the interface's last
// selection, so the service can apply upgrade/downgrade hysteresis.
type AdaptiveMCS struct {
	Table           string  `json:"table"`
	HysteresisDB    float64 `json:"hysteresis_db"`
	CurrentTablePos int     `json:"current_table_pos"` // -1 if no prior selection
}

// LinkRequest is the full per-directional-link compute request (§4.5).
type LinkRequest struct {
	LinkID      string `json:"link_id"`
	SceneFile   string `json:"scene_file,omitempty"`
	FrequencyHz float64 `json:"frequency_hz"`
	BandwidthHz float64 `json:"bandwidth_hz"`

	TxID       string      `json:"tx_id"`
	Tx         Point       `json:"tx"`
	TxAntenna  AntennaWire `json:"tx_antenna"`
	TxPowerDBm float64     `json:"tx_power_dbm"`

	RxID             string      `json:"rx_id"`
	Rx               Point       `json:"rx"`
	RxAntenna        AntennaWire `json:"rx_antenna"`
	RxNoiseFigureDB  float64     `json:"rx_noise_figure_db"`
	RxSensitivityDBm float64     `json:"rx_sensitivity_dbm"`

	PacketSizeBits int `json:"packet_size_bits"`

	Fixed    *FixedMCS    `json:"fixed,omitempty"`
	Adaptive *AdaptiveMCS `json:"adaptive,omitempty"`
}

// NetemParams is the derived handoff from physics to kernel (§3).
type NetemParams struct {
	DelayMs     float64 `json:"delay_ms"`
	JitterMs    float64 `json:"jitter_ms"`
	LossPercent float64 `json:"loss_percent"`
	RateMbps    float64 `json:"rate_mbps"`
}

// LinkResult is the full compute response: raw channel metrics, the SNR
// view, the MCS decision, and derived netem parameters.
type LinkResult struct {
	LinkID string `json:"link_id"`

	PathLossDB           float64 `json:"path_loss_db"`
	DelaySpreadNs        float64 `json:"delay_spread_ns"`
	DominantPathType     string  `json:"dominant_path_type"`
	DistanceM            float64 `json:"distance_m"`
	StrongestPathPowerDB float64 `json:"strongest_path_power_db"`
	StrongestPathDelayNs float64 `json:"strongest_path_delay_ns"`
	NumPaths             int     `json:"num_paths"`

	RxPowerDBm    float64 `json:"rx_power_dbm"`
	NoiseFloorDBm float64 `json:"noise_floor_dbm"`
	SNRdB         float64 `json:"snr_db"`
	Viable        bool    `json:"viable"`

	SelectedTablePos   int     `json:"selected_table_pos"`
	SelectedMCSIndex   int     `json:"selected_mcs_index"`
	Modulation         string  `json:"modulation"`
	CodeRate           float64 `json:"code_rate"`
	BER                float64 `json:"ber"`
	BLER               float64 `json:"bler"`
	PER                float64 `json:"per"`
	EffectiveRateMbps  float64 `json:"effective_rate_mbps"`

	Netem NetemParams `json:"netem"`
}

// InterfererWire is one candidate interferer supplied to /compute/sinr.
type InterfererWire struct {
	ID            string  `json:"id"`
	Position      Point   `json:"position"`
	TxPowerDBm    float64 `json:"tx_power_dbm"`
	FrequencyHz   float64 `json:"frequency_hz"`
	Active        bool    `json:"active"`
	TxProbability float64 `json:"tx_probability"`
}

// SINRRequest wraps a link request with its candidate interferers.
type SINRRequest struct {
	Link        LinkRequest      `json:"link"`
	Interferers []InterfererWire `json:"interferers"`
}

// BreakdownWire is one interferer's contribution to a SINR result.
type BreakdownWire struct {
	ID                    string  `json:"id"`
	RawPowerDBm           float64 `json:"raw_power_dbm"`
	FrequencySeparationHz float64 `json:"frequency_separation_hz"`
	ACLRAppliedDB         float64 `json:"aclr_applied_db"`
	EffectivePowerDBm     float64 `json:"effective_power_dbm"`
}

// SINRResult is the SINR result defined in §3.
type SINRResult struct {
	SignalPowerDBm       float64         `json:"signal_power_dbm"`
	NoiseFloorDBm        float64         `json:"noise_floor_dbm"`
	InterferencePowerDBm float64         `json:"interference_power_dbm"`
	SINRdB               float64         `json:"sinr_db"`
	NumActiveInterferers int             `json:"num_active_interferers"`
	Breakdown            []BreakdownWire `json:"breakdown"`
}

// LoadSceneRequest is the /scene/load body.
type LoadSceneRequest struct {
	File        string  `json:"file"`
	FrequencyHz float64 `json:"frequency_hz"`
	BandwidthHz float64 `json:"bandwidth_hz"`
}

// TransmissionStateRequest is the /transmission/state body.
type TransmissionStateRequest struct {
	States map[string]bool `json:"states"`
}

// TransmissionStateResponse lists link identifiers needing recompute.
type TransmissionStateResponse struct {
	AffectedLinks []string `json:"affected_links"`
}

// VisualizationState is the /visualization/state response.
type VisualizationState struct {
	SceneFile    string           `json:"scene_file,omitempty"`
	SceneObjects []SceneObject    `json:"scene_objects"`
	Devices      []DeviceState    `json:"devices"`
	Paths        []CachedPathView `json:"paths"`
	CacheSize    int              `json:"cache_size"`
}

// SceneObject is a named object with a bounding box, for visualization.
type SceneObject struct {
	Name     string  `json:"name"`
	Material string  `json:"material,omitempty"`
	MinX     float64 `json:"min_x"`
	MinY     float64 `json:"min_y"`
	MinZ     float64 `json:"min_z"`
	MaxX     float64 `json:"max_x"`
	MaxY     float64 `json:"max_y"`
	MaxZ     float64 `json:"max_z"`
}

// DeviceState is one device's most recently reported position.
type DeviceState struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
}

// PathView is one visualized path: vertex sequence, interaction codes, LOS flag.
type PathView struct {
	Vertices     []Point `json:"vertices"`
	Interactions []int   `json:"interactions"`
	IsLOS        bool    `json:"is_los"`
}

// CachedPathView is one cached link's visualization summary (§4.5).
type CachedPathView struct {
	LinkID              string     `json:"link_id"`
	TxPosition          Point      `json:"tx_position"`
	RxPosition          Point      `json:"rx_position"`
	DistanceM           float64    `json:"distance_m"`
	Paths               []PathView `json:"paths"` // up to five strongest
	RMSDelaySpreadNs    float64    `json:"rms_delay_spread_ns"`
	CoherenceBandwidthHz float64   `json:"coherence_bandwidth_hz"`
	RicianKFactorDB     *float64   `json:"rician_k_factor_db,omitempty"`
}

// HealthResponse is the /health response.
type HealthResponse struct {
	OK bool `json:"ok"`
}

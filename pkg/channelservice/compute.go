package channelservice

import (
	"fmt"
	"math"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/interference"
	"github.com/jihwankim/wireless-emulator/pkg/linkbudget"
)

// minNetemRateMbps is the floor applied to the netem rate field so that the
// "rate_mbps > 0" invariant holds even when the effective throughput is
// truly zero (unusable link or PER == 1).
const minNetemRateMbps = 0.001

func geometryFromWire(p Point, a AntennaWire) channelengine.Geometry {
	g := channelengine.Geometry{X: p.X, Y: p.Y, Z: p.Z}
	g.Antenna.Polarization = a.Polarization
	if a.Pattern != "" {
		g.Antenna.HasPattern = true
		g.Antenna.Pattern = a.Pattern
	} else if a.GainDBi != nil {
		g.Antenna.GainDBi = *a.GainDBi
	}
	return g
}

// LoadScene installs file as the scene for freqHz/bandwidthHz. Idempotent
// per (file, freqHz).
func (s *State) LoadScene(req LoadSceneRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.LoadScene(req.File, req.FrequencyHz, req.BandwidthHz); err != nil {
		return err
	}
	s.sceneFile = req.File
	return nil
}

// ComputeLink performs the full single-link pipeline: channel compute, SNR,
// MCS selection with hysteresis, BER/BLER/PER, effective rate, and netem
// parameter derivation. It updates the path cache and device positions.
func (s *State) ComputeLink(req LinkRequest) (LinkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeLinkLocked(req)
}

func (s *State) computeLinkLocked(req LinkRequest) (LinkResult, error) {
	txGeom := geometryFromWire(req.Tx, req.TxAntenna)
	rxGeom := geometryFromWire(req.Rx, req.RxAntenna)

	chResult, err := s.engine.Compute(req.FrequencyHz, req.BandwidthHz, txGeom, rxGeom)
	if err != nil {
		return LinkResult{}, fmt.Errorf("compute link %s: %w", req.LinkID, classify.Channel(err))
	}

	rxPowerDBm := s.receivedPowerDBm(req, chResult)
	noiseFloorDBm := linkbudget.NoiseFloorDBm(req.BandwidthHz, req.RxNoiseFigureDB)
	snrDB := linkbudget.SNRdB(rxPowerDBm, noiseFloorDBm)
	viable := rxPowerDBm >= req.RxSensitivityDBm

	result := s.buildResult(req, chResult, rxPowerDBm, noiseFloorDBm, snrDB, viable)

	if req.TxID != "" {
		s.positions[req.TxID] = req.Tx
	}
	if req.RxID != "" {
		s.positions[req.RxID] = req.Rx
	}
	if req.LinkID != "" {
		s.pathCache[req.LinkID] = cachedPath{
			txPosition:    req.Tx,
			rxPosition:    req.Rx,
			distanceM:     chResult.DistanceM,
			paths:         chResult.Paths,
			delaySpreadNs: chResult.DelaySpreadNs,
		}
	}

	return result, nil
}

func (s *State) receivedPowerDBm(req LinkRequest, ch channelengine.Result) float64 {
	if s.engine.HasScene(req.FrequencyHz) {
		return linkbudget.ReceivedPowerRayTraced(req.TxPowerDBm, ch.PathLossDB)
	}
	txGain := antennaGainDBi(req.TxAntenna)
	rxGain := antennaGainDBi(req.RxAntenna)
	return linkbudget.ReceivedPowerFreeSpace(req.TxPowerDBm, txGain, rxGain, ch.DistanceM, req.FrequencyHz)
}

func antennaGainDBi(a AntennaWire) float64 {
	if a.GainDBi != nil {
		return *a.GainDBi
	}
	return 0
}

// buildResult applies MCS selection (with hysteresis when adaptive) and
// derives BER/BLER/PER, effective rate, and netem parameters.
func (s *State) buildResult(req LinkRequest, ch channelengine.Result, rxPowerDBm, noiseFloorDBm, snrDB float64, viable bool) LinkResult {
	res := LinkResult{
		LinkID:               req.LinkID,
		PathLossDB:           ch.PathLossDB,
		DelaySpreadNs:        ch.DelaySpreadNs,
		DominantPathType:     string(ch.DominantPathType),
		DistanceM:            ch.DistanceM,
		StrongestPathPowerDB: ch.StrongestPathPowerDB,
		StrongestPathDelayNs: ch.StrongestPathDelayNs,
		NumPaths:             ch.NumPaths,
		RxPowerDBm:           rxPowerDBm,
		NoiseFloorDBm:        noiseFloorDBm,
		SNRdB:                snrDB,
		Viable:               viable,
	}

	var mod linkbudget.Modulation
	var codeRate float64
	var fec linkbudget.FECType
	tablePos := -1
	tableSize := 1
	publicMCSIndex := -1

	switch {
	case req.Adaptive != nil:
		table, ok := s.mcsRegistry.Lookup(req.Adaptive.Table)
		if !ok {
			table = linkbudget.WiFi6Table()
		}
		tableSize = len(table.Entries)
		if viable {
			tablePos = table.SelectMCS(snrDB, req.Adaptive.CurrentTablePos, req.Adaptive.HysteresisDB)
		} else {
			// link unusable: fall back to the lowest entry, per the
			// non-empty-table invariant, rather than tracking hysteresis.
			tablePos = 0
		}
		entry := table.Entries[tablePos]
		mod, codeRate, fec = entry.Modulation, entry.CodeRate, entry.FECType
		publicMCSIndex = entry.Index
	case req.Fixed != nil:
		mod = linkbudget.Modulation(req.Fixed.Modulation)
		codeRate = req.Fixed.FECCodeRate
		fec = linkbudget.FECType(req.Fixed.FECType)
	default:
		mod = linkbudget.BPSK
		codeRate = 0.5
		fec = linkbudget.FECNone
	}

	res.SelectedTablePos = tablePos
	res.SelectedMCSIndex = publicMCSIndex
	res.Modulation = string(mod)
	res.CodeRate = codeRate

	if !viable {
		res.BER = 0.5
		res.BLER = 1
		res.PER = 1
		res.EffectiveRateMbps = 0
		res.Netem = NetemParams{
			DelayMs:     ch.StrongestPathDelayNs / 1e6,
			JitterMs:    0,
			LossPercent: 100,
			RateMbps:    minNetemRateMbps,
		}
		return res
	}

	codingGain := linkbudget.CodingGainDB(fec, codeRate)
	snrForBER := math.Pow(10, (snrDB+codingGain)/10)

	ber := linkbudget.BER(mod, snrForBER)
	bler := linkbudget.BLER(ber, req.PacketSizeBits)
	per := linkbudget.PER(ber, req.PacketSizeBits)
	rate := linkbudget.EffectiveRateMbps(req.BandwidthHz, mod, codeRate, per, 0)

	res.BER = ber
	res.BLER = bler
	res.PER = per
	res.EffectiveRateMbps = rate

	jitterMs := s.jitter(ch.DelaySpreadNs, tablePos, tableSize)
	netemRate := rate
	if netemRate <= 0 {
		netemRate = minNetemRateMbps
	}

	res.Netem = NetemParams{
		DelayMs:     ch.StrongestPathDelayNs / 1e6,
		JitterMs:    jitterMs,
		LossPercent: per * 100,
		RateMbps:    netemRate,
	}
	return res
}

// ComputeBatch computes each request independently, preserving input order.
func (s *State) ComputeBatch(reqs []LinkRequest) []LinkResult {
	out := make([]LinkResult, len(reqs))
	for i, req := range reqs {
		res, err := s.ComputeLink(req)
		if err != nil {
			out[i] = degenerateLinkResult(req.LinkID)
			continue
		}
		out[i] = res
	}
	return out
}

func degenerateLinkResult(linkID string) LinkResult {
	return LinkResult{
		LinkID:            linkID,
		PathLossDB:        200,
		DominantPathType:  "nlos",
		Viable:            false,
		SelectedTablePos:  -1,
		SelectedMCSIndex:  -1,
		BER:               0.5,
		BLER:              1,
		PER:               1,
		EffectiveRateMbps: 0,
		Netem: NetemParams{
			LossPercent: 100,
			RateMbps:    minNetemRateMbps,
		},
	}
}

// ComputeSINR computes the base link (for SNR and MCS context) plus the
// SINR breakdown against the supplied interferers.
func (s *State) ComputeSINR(req SINRRequest) (LinkResult, SINRResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	linkResult, err := s.computeLinkLocked(req.Link)
	if err != nil {
		return LinkResult{}, SINRResult{}, err
	}

	rxGeom := geometryFromWire(req.Link.Rx, req.Link.RxAntenna)
	interferers := make([]interference.Interferer, 0, len(req.Interferers))
	for _, in := range req.Interferers {
		interferers = append(interferers, interference.Interferer{
			ID:            in.ID,
			Position:      channelengine.Geometry{X: in.Position.X, Y: in.Position.Y, Z: in.Position.Z},
			TxPowerDBm:    in.TxPowerDBm,
			FrequencyHz:   in.FrequencyHz,
			Active:        in.Active,
			TxProbability: in.TxProbability,
		})
	}

	sinr, err := s.interference.Aggregate(
		rxGeom,
		req.Link.FrequencyHz,
		req.Link.BandwidthHz,
		linkResult.RxPowerDBm,
		linkResult.NoiseFloorDBm,
		req.Link.RxSensitivityDBm,
		interferers,
	)
	if err != nil {
		return linkResult, SINRResult{}, err
	}

	breakdown := make([]BreakdownWire, len(sinr.Breakdown))
	for i, b := range sinr.Breakdown {
		breakdown[i] = BreakdownWire{
			ID:                    b.ID,
			RawPowerDBm:           b.RawPowerDBm,
			FrequencySeparationHz: b.FrequencySeparationHz,
			ACLRAppliedDB:         b.ACLRAppliedDB,
			EffectivePowerDBm:     b.EffectivePowerDBm,
		}
	}

	// The returned link result's MCS and netem are derived from SNR alone;
	// the SINR value is reported beside it and is not fed back into MCS
	// selection, here or in the controller.
	return linkResult, SINRResult{
		SignalPowerDBm:       sinr.SignalPowerDBm,
		NoiseFloorDBm:        sinr.NoiseFloorDBm,
		InterferencePowerDBm: sinr.InterferencePowerDBm,
		SINRdB:               sinr.SINRdB,
		NumActiveInterferers: sinr.NumActiveInterferers,
		Breakdown:            breakdown,
	}, nil
}

// UpdateTransmissionState sets the active/inactive flag for a set of
// interfaces. When at least one flag changed it returns every cached link
// identifier as a link to recompute; the list is not narrowed to the links
// that use the changed interfaces. It returns nil when no flag changed.
func (s *State) UpdateTransmissionState(states map[string]bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make(map[string]bool)
	for id, active := range states {
		if prev, ok := s.active[id]; !ok || prev != active {
			changed[id] = true
		}
		s.active[id] = active
	}

	if len(changed) == 0 {
		return nil
	}

	affected := make([]string, 0)
	for linkID := range s.pathCache {
		// The cache does not retain tx/rx device ids, only positions; callers
		// that need an id-keyed cache should route transmission-state
		// changes through the controller's link index instead. Here we
		// conservatively report every cached link as potentially affected.
		affected = append(affected, linkID)
	}
	return affected
}

// VisualizationState renders the current loaded scene, device positions,
// and cached paths for the notebook visualizer.
func (s *State) VisualizationState() VisualizationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]DeviceState, 0, len(s.positions))
	ids := make([]string, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	for _, id := range sortedCopy(ids) {
		devices = append(devices, DeviceState{ID: id, Position: s.positions[id]})
	}

	views := make([]CachedPathView, 0, len(s.pathCache))
	for _, linkID := range s.cacheLinkKeys() {
		cp := s.pathCache[linkID]
		views = append(views, cachedPathView(linkID, cp))
	}

	return VisualizationState{
		SceneFile:    s.sceneFile,
		SceneObjects: []SceneObject{},
		Devices:      devices,
		Paths:        views,
		CacheSize:    len(s.pathCache),
	}
}

func cachedPathView(linkID string, cp cachedPath) CachedPathView {
	const maxPaths = 5

	sortedPaths := append([]channelengine.Path(nil), cp.paths...)
	sortByPower(sortedPaths)
	if len(sortedPaths) > maxPaths {
		sortedPaths = sortedPaths[:maxPaths]
	}

	views := make([]PathView, len(sortedPaths))
	var losPower, nlosPower float64
	for i, p := range sortedPaths {
		vertices := make([]Point, len(p.Vertices))
		for j, v := range p.Vertices {
			vertices[j] = Point{X: v.X, Y: v.Y, Z: v.Z}
		}
		interactions := make([]int, len(p.Interactions))
		isLOS := len(p.Interactions) > 0
		for j, in := range p.Interactions {
			interactions[j] = int(in)
			if in != channelengine.InteractionNone {
				isLOS = false
			}
		}
		views[i] = PathView{Vertices: vertices, Interactions: interactions, IsLOS: isLOS}

		mag2 := math.Pow(10, p.PowerDB()/10)
		if isLOS {
			losPower += mag2
		} else {
			nlosPower += mag2
		}
	}

	coherenceBW := math.Inf(1)
	if cp.delaySpreadNs > 0 {
		coherenceBW = 1 / (5 * cp.delaySpreadNs * 1e-9)
	}

	var kFactor *float64
	if losPower > 0 && nlosPower > 0 {
		k := 10 * math.Log10(losPower/nlosPower)
		kFactor = &k
	}

	return CachedPathView{
		LinkID:               linkID,
		TxPosition:           cp.txPosition,
		RxPosition:           cp.rxPosition,
		DistanceM:            cp.distanceM,
		Paths:                views,
		RMSDelaySpreadNs:     cp.delaySpreadNs,
		CoherenceBandwidthHz: coherenceBW,
		RicianKFactorDB:      kFactor,
	}
}

func sortByPower(paths []channelengine.Path) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && paths[j].PowerDB() > paths[j-1].PowerDB(); j-- {
			paths[j], paths[j-1] = paths[j-1], paths[j]
		}
	}
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

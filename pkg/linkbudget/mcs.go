package linkbudget

import "sort"

// MCSEntry is one row of a modulation-and-coding-scheme table.
type MCSEntry struct {
	Index           int
	Modulation      Modulation
	CodeRate        float64
	MinSNRdB        float64
	FECType         FECType
	BandwidthMHz    float64
	SpreadingFactor int // 0/1 disables spreading
}

// MCSTable is sorted by MinSNRdB ascending; Index is monotonic with rate.
type MCSTable struct {
	Name    string
	Entries []MCSEntry
}

// Sort orders entries by MinSNRdB ascending, as required by the selection logic.
func (t *MCSTable) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return t.Entries[i].MinSNRdB < t.Entries[j].MinSNRdB
	})
}

// Lowest returns the entry with the smallest MinSNRdB — always selectable
// as a fallback per the non-empty-table invariant.
func (t *MCSTable) Lowest() MCSEntry {
	return t.Entries[0]
}

// candidateIndex returns the position (not MCSEntry.Index) of the highest
// entry whose MinSNRdB <= snr.
func (t *MCSTable) candidateIndex(snrDB float64) int {
	candidate := 0
	for i, e := range t.Entries {
		if e.MinSNRdB <= snrDB {
			candidate = i
		} else {
			break
		}
	}
	return candidate
}

// SelectMCS applies the upgrade/downgrade hysteresis rule described in the
// link-budget design: upgrades require the candidate's own margin to be
// cleared, downgrades require the current entry's margin to be breached.
// currentPos < 0 means "no prior selection" — the candidate is picked directly.
func (t *MCSTable) SelectMCS(snrDB float64, currentPos int, hysteresisDB float64) int {
	candidate := t.candidateIndex(snrDB)

	if currentPos < 0 || currentPos >= len(t.Entries) {
		return candidate
	}
	if candidate == currentPos {
		return currentPos
	}

	if candidate > currentPos {
		if snrDB >= t.Entries[candidate].MinSNRdB+hysteresisDB {
			return candidate
		}
		return currentPos
	}

	// candidate < currentPos: downgrade only once SNR drops below the
	// current entry's own threshold minus hysteresis.
	if snrDB < t.Entries[currentPos].MinSNRdB-hysteresisDB {
		return candidate
	}
	return currentPos
}

// WiFi6Table returns a representative 802.11ax-style MCS table (20 MHz,
// single spatial stream), used as the default adaptive table when a
// topology references "wifi6" without supplying its own.
func WiFi6Table() MCSTable {
	t := MCSTable{
		Name: "wifi6",
		Entries: []MCSEntry{
			{Index: 0, Modulation: BPSK, CodeRate: 0.5, MinSNRdB: 2, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 1, Modulation: QPSK, CodeRate: 0.5, MinSNRdB: 5, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 2, Modulation: QPSK, CodeRate: 0.75, MinSNRdB: 8, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 3, Modulation: QAM16, CodeRate: 0.5, MinSNRdB: 11, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 4, Modulation: QAM16, CodeRate: 0.75, MinSNRdB: 15, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 5, Modulation: QAM64, CodeRate: 0.666, MinSNRdB: 19, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 6, Modulation: QAM64, CodeRate: 0.75, MinSNRdB: 22, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 7, Modulation: QAM64, CodeRate: 0.833, MinSNRdB: 24, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 8, Modulation: QAM256, CodeRate: 0.75, MinSNRdB: 27, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 9, Modulation: QAM256, CodeRate: 0.833, MinSNRdB: 30, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 10, Modulation: QAM1024, CodeRate: 0.75, MinSNRdB: 33, FECType: FECLDPC, BandwidthMHz: 20},
			{Index: 11, Modulation: QAM1024, CodeRate: 0.833, MinSNRdB: 36, FECType: FECLDPC, BandwidthMHz: 20},
		},
	}
	t.Sort()
	return t
}

// Registry looks up named MCS tables by the string used in a topology's
// mcs_table field.
type Registry struct {
	tables map[string]MCSTable
}

// NewRegistry creates a registry pre-seeded with the built-in tables.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[string]MCSTable)}
	r.Register(WiFi6Table())
	return r
}

// Register installs or replaces a named table.
func (r *Registry) Register(t MCSTable) {
	t.Sort()
	r.tables[t.Name] = t
}

// Lookup returns the named table and whether it was found.
func (r *Registry) Lookup(name string) (MCSTable, bool) {
	t, ok := r.tables[name]
	return t, ok
}

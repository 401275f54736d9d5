package mac

import "github.com/jihwankim/wireless-emulator/pkg/topology"

// tdmaTxProbability implements §4.4's statistical TDMA model. Fixed and
// round_robin modes are handled identically as deterministic intersection of
// the configured slot_map sets; a round_robin slot set is not derived from
// node order before this call, so an interface without a slot_map shares no
// slot with anyone. In random/distributed modes no explicit set
// exists, so the probability is the product of each interface's configured
// ownership probability.
func tdmaTxProbability(receiver, interferer *topology.TDMAConfig) float64 {
	if receiver == nil || interferer == nil {
		return 1
	}

	switch receiver.SlotAssignmentMode {
	case "fixed", "round_robin":
		if intersects(receiver.SlotMap, interferer.SlotMap) {
			return 1
		}
		return 0
	case "random", "distributed":
		rp := ownershipProbability(receiver)
		ip := ownershipProbability(interferer)
		return rp * ip
	default:
		return 1
	}
}

func ownershipProbability(cfg *topology.TDMAConfig) float64 {
	if cfg.SlotOwnershipProbability > 0 {
		return cfg.SlotOwnershipProbability
	}
	if cfg.NumSlots > 0 {
		return 1.0 / float64(cfg.NumSlots)
	}
	return 1
}

// ResolveRoundRobinSlot assigns interface ordinal its single owned slot
// under round_robin mode: ordinal mod NumSlots. tdmaTxProbability does not
// call it; it compares the configured SlotMap as given.
func ResolveRoundRobinSlot(cfg *topology.TDMAConfig, ordinal int) []int {
	if cfg.NumSlots <= 0 {
		return nil
	}
	return []int{ordinal % cfg.NumSlots}
}

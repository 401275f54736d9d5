package controller

import (
	"fmt"

	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// LinkPlan pairs a resolved channel-service request with the host-visible
// node/interface the resulting shape must be applied to.
type LinkPlan struct {
	TxNode      string
	TxInterface string
	RxNode      string
	RxInterface string
	Request     channelservice.LinkRequest
}

// BuildLinkPlans derives one LinkPlan per direction of every declared
// point-to-point link in t. Both directions are planned independently since
// netem shapes are applied per egress interface.
func BuildLinkPlans(t *topology.Topology) ([]LinkPlan, error) {
	var plans []LinkPlan
	for i, link := range t.Links {
		aIface := t.Interface(link.A.Node, link.A.Interface)
		bIface := t.Interface(link.B.Node, link.B.Interface)
		if aIface == nil || bIface == nil {
			return nil, classify.TopologyErr(fmt.Errorf("link %d references an undeclared interface", i))
		}

		if aIface.Wireless == nil || bIface.Wireless == nil {
			continue // fixed_netem interfaces are applied directly, not via the channel service
		}

		fwd, err := buildRequest(fmt.Sprintf("link-%d-fwd", i), link.A.Node, link.A.Interface, *aIface, link.B.Node, link.B.Interface, *bIface)
		if err != nil {
			return nil, err
		}
		rev, err := buildRequest(fmt.Sprintf("link-%d-rev", i), link.B.Node, link.B.Interface, *bIface, link.A.Node, link.A.Interface, *aIface)
		if err != nil {
			return nil, err
		}

		plans = append(plans,
			LinkPlan{TxNode: link.A.Node, TxInterface: link.A.Interface, RxNode: link.B.Node, RxInterface: link.B.Interface, Request: fwd},
			LinkPlan{TxNode: link.B.Node, TxInterface: link.B.Interface, RxNode: link.A.Node, RxInterface: link.A.Interface, Request: rev},
		)
	}
	return plans, nil
}

func buildRequest(linkID, txNode, txIfaceName string, txIface topology.Interface, rxNode, rxIfaceName string, rxIface topology.Interface) (channelservice.LinkRequest, error) {
	tx, rx := txIface.Wireless, rxIface.Wireless
	if tx.FrequencyGHz != rx.FrequencyGHz {
		return channelservice.LinkRequest{}, classify.TopologyErr(
			fmt.Errorf("link %s: endpoints operate at different frequencies (%gGHz vs %gGHz)", linkID, tx.FrequencyGHz, rx.FrequencyGHz))
	}

	req := channelservice.LinkRequest{
		LinkID:      linkID,
		FrequencyHz: tx.FrequencyGHz * 1e9,
		BandwidthHz: tx.BandwidthMHz * 1e6,

		TxID:       txNode + "." + txIfaceName,
		Tx:         toPoint(tx.Position),
		TxAntenna:  toAntennaWire(tx.Antenna),
		TxPowerDBm: tx.RFPowerDBm,

		RxID:             rxNode + "." + rxIfaceName,
		Rx:               toPoint(rx.Position),
		RxAntenna:        toAntennaWire(rx.Antenna),
		RxNoiseFigureDB:  rx.NoiseFigureDB,
		RxSensitivityDBm: rx.RxSensitivityDBm,

		PacketSizeBits: tx.PacketSizeBits,
	}

	if tx.Adaptive() {
		req.Adaptive = &channelservice.AdaptiveMCS{
			Table:           tx.MCSTable,
			HysteresisDB:    tx.Hysteresis(),
			CurrentTablePos: -1,
		}
	} else {
		req.Fixed = &channelservice.FixedMCS{
			Modulation:  tx.Modulation,
			FECType:     tx.FECType,
			FECCodeRate: tx.FECCodeRate,
		}
	}

	return req, nil
}

func toPoint(p topology.Position) channelservice.Point {
	return channelservice.Point{X: p.X, Y: p.Y, Z: p.Z}
}

func toAntennaWire(a topology.Antenna) channelservice.AntennaWire {
	return channelservice.AntennaWire{Pattern: a.Pattern, GainDBi: a.GainDBi, Polarization: a.Polarization}
}

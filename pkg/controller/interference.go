package controller

import (
	"context"
	"fmt"

	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/mac"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// SINRPlan is one shared-bridge receiver's SINR request: its own link
// request plus every other bridge participant as a candidate interferer,
// each weighted by the statistical MAC transmission probability between
// them.
type SINRPlan struct {
	ReceiverNode string
	Interface    string
	Request      channelservice.SINRRequest
}

// BuildSINRPlans derives one SINRPlan per shared-bridge participant,
// treating every other participant on the same bridge as a candidate
// interferer. Returns nil (no error) when the topology isn't in shared
// bridge mode.
func BuildSINRPlans(t *topology.Topology) ([]SINRPlan, error) {
	if !t.SharedBridgeMode() {
		return nil, nil
	}

	type participant struct {
		node, iface string
		w           *topology.Wireless
	}
	var participants []participant
	for _, node := range t.SharedBridge.Nodes {
		iface := t.Interface(node, t.SharedBridge.InterfaceName)
		if iface == nil || iface.Wireless == nil {
			return nil, classify.TopologyErr(fmt.Errorf("shared bridge participant %s.%s is not a wireless interface", node, t.SharedBridge.InterfaceName))
		}
		participants = append(participants, participant{node: node, iface: t.SharedBridge.InterfaceName, w: iface.Wireless})
	}

	var plans []SINRPlan
	for i, rx := range participants {
		var interferers []channelservice.InterfererWire
		for j, tx := range participants {
			if i == j {
				continue
			}
			probability := macTxProbability(tx.w.FrequencyGHz*1e9, rx.w.RxSensitivityDBm,
				toMACEndpoint(rx.w), toMACEndpoint(tx.w))

			interferers = append(interferers, channelservice.InterfererWire{
				ID:            tx.node + "." + tx.iface,
				Position:      toPoint(tx.w.Position),
				TxPowerDBm:    tx.w.RFPowerDBm,
				FrequencyHz:   tx.w.FrequencyGHz * 1e9,
				Active:        tx.w.Active(),
				TxProbability: probability,
			})
		}

		req, err := buildRequest(fmt.Sprintf("bridge-%s", rx.node), rx.node, rx.iface, topology.Interface{Wireless: rx.w}, rx.node, rx.iface, topology.Interface{Wireless: rx.w})
		if err != nil {
			return nil, err
		}
		// The SINR request's link leg is a self-loop placeholder: its
		// receiver-side fields (noise figure, sensitivity) are what SINR
		// computation actually consumes; transmitter geometry is unused
		// without a designated peer on a shared (broadcast) medium.
		req.LinkID = fmt.Sprintf("bridge-%s", rx.node)

		plans = append(plans, SINRPlan{
			ReceiverNode: rx.node,
			Interface:    rx.iface,
			Request:      channelservice.SINRRequest{Link: req, Interferers: interferers},
		})
	}

	return plans, nil
}

func toMACEndpoint(w *topology.Wireless) mac.Endpoint {
	return mac.Endpoint{
		X: w.Position.X, Y: w.Position.Y, Z: w.Position.Z,
		TxPowerDBm: w.RFPowerDBm,
		CSMA:       w.CSMA,
		TDMA:       w.TDMA,
	}
}

// ConvergeSharedBridge computes every shared-bridge participant's SINR
// result and reports the aggregate interference each sees. Unlike
// point-to-point links, the shared medium doesn't map to a single netem
// shape per peer; convergeSharedBridge only logs these results, and the
// per-peer HTB classes it installs come from the pairwise link budgets.
func (c *Controller) ConvergeSharedBridge(ctx context.Context, t *topology.Topology) (map[string]channelservice.SINRResult, error) {
	plans, err := BuildSINRPlans(t)
	if err != nil {
		return nil, err
	}

	results := make(map[string]channelservice.SINRResult, len(plans))
	for _, plan := range plans {
		_, sinr, err := c.cfg.Channel.ComputeSINR(ctx, plan.Request)
		if err != nil {
			return nil, classify.SINR(fmt.Errorf("compute sinr for %s: %w", plan.ReceiverNode, err))
		}
		results[plan.ReceiverNode] = sinr
	}
	return results, nil
}

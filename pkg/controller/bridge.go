package controller

import (
	"context"
	"fmt"

	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/tc"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// broadcastClassMinor is the HTB class reserved for traffic that matches no
// per-destination filter (spec's class 1:99).
const broadcastClassMinor = 99

// bridgeClassStride spaces per-destination class minors (10, 20, ... 90),
// leaving room below broadcastClassMinor; a node with more than nine peers
// runs out of class numbers, which convergeSharedBridge rejects.
const bridgeClassStride = 10

// BuildBridgeLinkPlans derives one LinkPlan per ordered pair of
// shared-bridge participants: from each node's perspective, every other
// participant is a destination whose point-to-point rate/delay/jitter/loss
// must be computed and installed as a per-dest HTB class on its bridge port.
func BuildBridgeLinkPlans(t *topology.Topology) ([]LinkPlan, error) {
	if !t.SharedBridgeMode() {
		return nil, nil
	}

	ifaceName := t.SharedBridge.InterfaceName
	var plans []LinkPlan
	for _, txNode := range t.SharedBridge.Nodes {
		txIface := t.Interface(txNode, ifaceName)
		if txIface == nil || txIface.Wireless == nil {
			return nil, classify.TopologyErr(fmt.Errorf("shared bridge participant %s.%s is not a wireless interface", txNode, ifaceName))
		}
		for _, rxNode := range t.SharedBridge.Nodes {
			if rxNode == txNode {
				continue
			}
			rxIface := t.Interface(rxNode, ifaceName)
			if rxIface == nil || rxIface.Wireless == nil {
				return nil, classify.TopologyErr(fmt.Errorf("shared bridge participant %s.%s is not a wireless interface", rxNode, ifaceName))
			}

			req, err := buildRequest(fmt.Sprintf("bridge-%s-%s", txNode, rxNode), txNode, ifaceName, *txIface, rxNode, ifaceName, *rxIface)
			if err != nil {
				return nil, err
			}
			plans = append(plans, LinkPlan{TxNode: txNode, TxInterface: ifaceName, RxNode: rxNode, RxInterface: ifaceName, Request: req})
		}
	}
	return plans, nil
}

// convergeSharedBridge computes the per-destination mesh of shared-bridge
// links, installs the resulting HTB tree on each participant's bridge port,
// and separately computes (and logs) each participant's SINR against the
// bridge's other active transmitters. The mesh result — a per-pair link
// budget — decides the rate/delay/jitter/loss class for that destination;
// SINR is a receiver-side ambient-interference figure, not a per-destination
// one, so it feeds telemetry rather than the HTB classes themselves.
func (c *Controller) convergeSharedBridge(ctx context.Context, t *topology.Topology) error {
	meshPlans, err := BuildBridgeLinkPlans(t)
	if err != nil {
		return err
	}
	if len(meshPlans) == 0 {
		return nil
	}

	reqs := make([]channelservice.LinkRequest, len(meshPlans))
	for i, plan := range meshPlans {
		reqs[i] = plan.Request
	}
	results, err := c.cfg.Channel.ComputeBatch(ctx, reqs)
	if err != nil {
		return classify.Channel(fmt.Errorf("compute shared-bridge mesh: %w", err))
	}
	if len(results) != len(meshPlans) {
		return classify.Channel(fmt.Errorf("channel service returned %d results for %d requested bridge links", len(results), len(meshPlans)))
	}

	peersByNode := make(map[string][]tc.PeerShape)
	totalByNode := make(map[string]float64)
	nextClassMinor := make(map[string]uint16)

	for i, plan := range meshPlans {
		result := results[i]
		c.recordResult(plan.Request.LinkID, result)

		classMinor := nextClassMinor[plan.TxNode]
		if classMinor == 0 {
			classMinor = bridgeClassStride
		}
		if classMinor >= broadcastClassMinor {
			return classify.TC(fmt.Errorf("shared bridge node %s has too many peers for the available HTB class range", plan.TxNode))
		}
		nextClassMinor[plan.TxNode] = classMinor + bridgeClassStride

		rxIface := t.Interface(plan.RxNode, plan.RxInterface)
		peersByNode[plan.TxNode] = append(peersByNode[plan.TxNode], tc.PeerShape{
			ClassMinor:  classMinor,
			DestIP:      rxIface.IPAddress,
			RateMbps:    result.Netem.RateMbps,
			CeilMbps:    result.Netem.RateMbps,
			DelayMs:     result.Netem.DelayMs,
			JitterMs:    result.Netem.JitterMs,
			LossPercent: result.Netem.LossPercent,
		})
		totalByNode[plan.TxNode] += result.Netem.RateMbps
	}

	sinrResults, err := c.ConvergeSharedBridge(ctx, t)
	if err != nil {
		return err
	}
	for node, sinr := range sinrResults {
		c.cfg.Log.Debug().
			Str("node", node).
			Float64("sinr_db", sinr.SINRdB).
			Int("active_interferers", sinr.NumActiveInterferers).
			Msg("shared bridge ambient SINR")
	}

	ifaceName := t.SharedBridge.InterfaceName
	var bridgeLinks []LinkPlan
	for _, node := range t.SharedBridge.Nodes {
		peers := peersByNode[node]
		if len(peers) == 0 {
			continue
		}
		if err := c.cfg.Shapes.ApplySharedBridge(node, ifaceName, totalByNode[node], peers); err != nil {
			return err
		}
	}
	for _, plan := range meshPlans {
		bridgeLinks = append(bridgeLinks, plan)
	}

	c.mu.Lock()
	c.bridgeLinks = bridgeLinks
	c.mu.Unlock()
	return nil
}

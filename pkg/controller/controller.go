// Package controller drives the deployment lifecycle: parse and validate a
// topology, stand up containers and veth plumbing, converge every declared
// link's channel parameters onto live netem/HTB qdiscs, then tear it all
// down again. It is the orchestration layer that ties pkg/topology,
// pkg/runtime, pkg/tc, pkg/channelservice and pkg/mac together.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/mac"
	"github.com/jihwankim/wireless-emulator/pkg/tc"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
	"github.com/jihwankim/wireless-emulator/pkg/topology/validator"
)

// State names one stage of the deployment lifecycle.
type State int

const (
	StateParse State = iota
	StateValidate
	StateDeploy
	StateLoadScene
	StateConverge
	StateMonitor
	StateTeardown
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateParse:
		return "PARSE"
	case StateValidate:
		return "VALIDATE"
	case StateDeploy:
		return "DEPLOY"
	case StateLoadScene:
		return "LOAD_SCENE"
	case StateConverge:
		return "CONVERGE"
	case StateMonitor:
		return "MONITOR"
	case StateTeardown:
		return "TEARDOWN"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// NodeAdapter deploys and destroys containers and their namespace plumbing.
// Satisfied by *pkg/runtime.Adapter.
type NodeAdapter interface {
	Deploy(ctx context.Context, t *topology.Topology) error
	Destroy(ctx context.Context, t *topology.Topology) error
}

// ShapeDriver applies computed link shapes to deployed interfaces.
// Satisfied by *pkg/tc.Driver.
type ShapeDriver interface {
	ApplyPointToPoint(node, iface string, shape tc.LinkShape) error
	ClearPointToPoint(node, iface string) error
	ApplySharedBridge(node, iface string, totalMbps float64, peers []tc.PeerShape) error
}

// Config wires the collaborators a Controller needs.
type Config struct {
	Nodes     NodeAdapter
	Shapes    ShapeDriver
	Channel   *channelservice.Client
	PollEvery time.Duration
	Log       zerolog.Logger
}

// Controller runs one topology's deployment lifecycle.
type Controller struct {
	cfg   Config
	state State

	mu          sync.Mutex
	top         *topology.Topology
	links       []LinkPlan
	fixedLinks  []FixedEndpoint
	bridgeLinks []LinkPlan
	results     map[string]channelservice.LinkResult
	destroying  bool

	stopMonitor chan struct{}
}

// New builds a Controller from cfg. PollEvery defaults to 2 seconds.
func New(cfg Config) *Controller {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	return &Controller{cfg: cfg, state: StateParse}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	c.cfg.Log.Info().Str("from", prev.String()).Str("to", s.String()).Msg("controller state transition")
}

// Deploy runs PARSE (already done by caller) through CONVERGE: validate the
// topology, deploy containers/veths, load the scene, and compute+apply
// every declared link's shape.
func (c *Controller) Deploy(ctx context.Context, t *topology.Topology) error {
	c.mu.Lock()
	c.top = t
	c.mu.Unlock()

	c.transition(StateValidate)
	v := validator.New()
	if err := v.Validate(t); err != nil {
		return c.fail(err)
	}

	c.transition(StateDeploy)
	if err := c.cfg.Nodes.Deploy(ctx, t); err != nil {
		return c.fail(classify.Runtime(err))
	}

	c.transition(StateLoadScene)
	if t.Scene.File != "" {
		err := c.cfg.Channel.LoadScene(ctx, channelservice.LoadSceneRequest{File: t.Scene.File})
		if err != nil {
			return c.fail(classify.Scene(err))
		}
	}

	c.transition(StateConverge)
	plans, err := BuildLinkPlans(t)
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	c.links = plans
	c.mu.Unlock()

	if err := c.convergeAll(ctx); err != nil {
		return c.fail(err)
	}

	if t.SharedBridgeMode() {
		if err := c.convergeSharedBridge(ctx, t); err != nil {
			return c.fail(err)
		}
	}

	fixed, err := applyFixedNetem(t, c.cfg.Shapes)
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	c.fixedLinks = fixed
	c.mu.Unlock()

	c.transition(StateCompleted)
	return nil
}

// FixedEndpoint is one fixed_netem interface that had a static shape applied
// outside the channel service's ray-tracing pipeline.
type FixedEndpoint struct {
	Node      string
	Interface string
	Shape     tc.LinkShape
}

// applyFixedNetem applies the statically-declared netem/rate parameters of
// every fixed_netem interface in t directly, with no channel-service round
// trip: their shape doesn't depend on geometry, so it never changes between
// convergence passes.
func applyFixedNetem(t *topology.Topology, shapes ShapeDriver) ([]FixedEndpoint, error) {
	var applied []FixedEndpoint
	for nodeName, node := range t.Nodes {
		for ifaceName, iface := range node.Interfaces {
			if iface.FixedNetem == nil {
				continue
			}
			shape := tc.LinkShape{
				DelayMs:     iface.FixedNetem.DelayMs,
				JitterMs:    iface.FixedNetem.JitterMs,
				LossPercent: iface.FixedNetem.LossPercent,
				RateMbps:    iface.FixedNetem.RateMbps,
			}
			if err := shapes.ApplyPointToPoint(nodeName, ifaceName, shape); err != nil {
				return nil, classify.TC(fmt.Errorf("apply fixed netem on %s.%s: %w", nodeName, ifaceName, err))
			}
			applied = append(applied, FixedEndpoint{Node: nodeName, Interface: ifaceName, Shape: shape})
		}
	}
	return applied, nil
}

// convergeAll computes every link plan's current channel result and applies
// the derived shape to its interfaces.
func (c *Controller) convergeAll(ctx context.Context) error {
	c.mu.Lock()
	plans := append([]LinkPlan(nil), c.links...)
	c.mu.Unlock()
	return c.applyPlans(ctx, plans)
}

// applyPlans computes plans' current channel results in a single batched
// round trip to the channel service and applies each derived shape to its
// egress interface. Batching (rather than one request per plan) is what
// spec §5 means by "issued... in parallel when the service supports it" —
// ComputeBatch is that support.
func (c *Controller) applyPlans(ctx context.Context, plans []LinkPlan) error {
	if len(plans) == 0 {
		return nil
	}

	reqs := make([]channelservice.LinkRequest, len(plans))
	for i, plan := range plans {
		reqs[i] = plan.Request
	}

	results, err := c.cfg.Channel.ComputeBatch(ctx, reqs)
	if err != nil {
		return classify.Channel(fmt.Errorf("compute link batch: %w", err))
	}
	if len(results) != len(plans) {
		return classify.Channel(fmt.Errorf("channel service returned %d results for %d requested links", len(results), len(plans)))
	}

	for i, plan := range plans {
		result := results[i]
		shape := tc.LinkShape{
			DelayMs:     result.Netem.DelayMs,
			JitterMs:    result.Netem.JitterMs,
			LossPercent: result.Netem.LossPercent,
			RateMbps:    result.Netem.RateMbps,
		}

		if err := c.cfg.Shapes.ApplyPointToPoint(plan.TxNode, plan.TxInterface, shape); err != nil {
			return err
		}
		c.recordResult(plan.Request.LinkID, result)

		c.cfg.Log.Debug().
			Str("link", plan.Request.LinkID).
			Float64("delay_ms", shape.DelayMs).
			Float64("loss_pct", shape.LossPercent).
			Float64("rate_mbps", shape.RateMbps).
			Msg("applied link shape")
	}
	return nil
}

// StartMonitor polls the channel service's transmission-state endpoint and
// reconverges affected links until the context is cancelled or StopMonitor
// is called. Intended to run as a goroutine after Deploy succeeds.
func (c *Controller) StartMonitor(ctx context.Context, states map[string]bool) {
	c.transition(StateMonitor)
	c.mu.Lock()
	c.stopMonitor = make(chan struct{})
	stop := c.stopMonitor
	c.mu.Unlock()

	ticker := time.NewTicker(c.cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			affected, err := c.cfg.Channel.UpdateTransmissionState(ctx, states)
			if err != nil {
				c.cfg.Log.Warn().Err(err).Msg("transmission state update failed")
				continue
			}
			if len(affected) == 0 {
				continue
			}
			if err := c.reconverge(ctx, affected); err != nil {
				c.cfg.Log.Warn().Err(err).Msg("reconverge failed")
			}
		}
	}
}

// StopMonitor stops a running StartMonitor loop.
func (c *Controller) StopMonitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopMonitor != nil {
		close(c.stopMonitor)
		c.stopMonitor = nil
	}
}

func (c *Controller) reconverge(ctx context.Context, linkIDs []string) error {
	affected := make(map[string]bool, len(linkIDs))
	for _, id := range linkIDs {
		affected[id] = true
	}

	c.mu.Lock()
	plans := make([]LinkPlan, 0, len(linkIDs))
	for _, p := range c.links {
		if affected[p.Request.LinkID] {
			plans = append(plans, p)
		}
	}
	c.mu.Unlock()

	return c.applyPlans(ctx, plans)
}

func (c *Controller) recordResult(linkID string, result channelservice.LinkResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]channelservice.LinkResult)
	}
	c.results[linkID] = result
}

// Reposition updates node's wireless position (all of its wireless
// interfaces, or only iface if non-empty), rebuilds the link plans so their
// geometry reflects the new position, and reconverges only the links that
// touch node. Rejected while a Teardown is in progress.
func (c *Controller) Reposition(ctx context.Context, node, iface string, pos topology.Position) error {
	c.mu.Lock()
	if c.destroying {
		c.mu.Unlock()
		return classify.Runtime(fmt.Errorf("mobility update rejected: teardown in progress"))
	}
	top := c.top
	if top == nil {
		c.mu.Unlock()
		return classify.Runtime(fmt.Errorf("no topology deployed"))
	}

	n, ok := top.Nodes[node]
	if !ok {
		c.mu.Unlock()
		return classify.TopologyErr(fmt.Errorf("unknown node %s", node))
	}

	updated := false
	for name, ifc := range n.Interfaces {
		if iface != "" && name != iface {
			continue
		}
		if ifc.Wireless == nil {
			continue
		}
		ifc.Wireless.Position = pos
		n.Interfaces[name] = ifc
		updated = true
	}
	top.Nodes[node] = n
	if !updated {
		c.mu.Unlock()
		return classify.TopologyErr(fmt.Errorf("node %s has no matching wireless interface", node))
	}

	plans, err := BuildLinkPlans(top)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.links = plans
	c.mu.Unlock()

	var affected []string
	for _, p := range plans {
		if p.TxNode == node || p.RxNode == node {
			affected = append(affected, p.Request.LinkID)
		}
	}
	return c.reconverge(ctx, affected)
}

// Position returns node's current wireless position (the first matching
// interface if iface is empty).
func (c *Controller) Position(node, iface string) (topology.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.top == nil {
		return topology.Position{}, false
	}
	n, ok := c.top.Nodes[node]
	if !ok {
		return topology.Position{}, false
	}
	for name, ifc := range n.Interfaces {
		if iface != "" && name != iface {
			continue
		}
		if ifc.Wireless == nil {
			continue
		}
		return ifc.Wireless.Position, true
	}
	return topology.Position{}, false
}

// AllPositions returns every deployed node's wireless interfaces and their
// current position, keyed by node then interface name.
func (c *Controller) AllPositions() map[string]map[string]topology.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.top == nil {
		return nil
	}
	out := make(map[string]map[string]topology.Position, len(c.top.Nodes))
	for nodeName, n := range c.top.Nodes {
		for ifaceName, ifc := range n.Interfaces {
			if ifc.Wireless == nil {
				continue
			}
			if out[nodeName] == nil {
				out[nodeName] = make(map[string]topology.Position)
			}
			out[nodeName][ifaceName] = ifc.Wireless.Position
		}
	}
	return out
}

// Teardown clears every interface's shape and destroys the deployed nodes.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.Lock()
	c.destroying = true
	c.mu.Unlock()

	c.StopMonitor()
	c.transition(StateTeardown)

	c.mu.Lock()
	top := c.top
	plans := append([]LinkPlan(nil), c.links...)
	fixed := append([]FixedEndpoint(nil), c.fixedLinks...)
	bridge := append([]LinkPlan(nil), c.bridgeLinks...)
	c.mu.Unlock()

	if top == nil {
		return nil
	}

	var firstErr error
	for _, plan := range plans {
		if err := c.cfg.Shapes.ClearPointToPoint(plan.TxNode, plan.TxInterface); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, ep := range fixed {
		if err := c.cfg.Shapes.ClearPointToPoint(ep.Node, ep.Interface); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	seenBridgePort := make(map[string]bool, len(bridge))
	for _, plan := range bridge {
		port := plan.TxNode + "." + plan.TxInterface
		if seenBridgePort[port] {
			continue
		}
		seenBridgePort[port] = true
		if err := c.cfg.Shapes.ClearPointToPoint(plan.TxNode, plan.TxInterface); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := c.cfg.Nodes.Destroy(ctx, top); err != nil && firstErr == nil {
		firstErr = classify.Runtime(err)
	}
	return firstErr
}

func (c *Controller) fail(err error) error {
	c.transition(StateFailed)
	return err
}

// macTxProbability resolves the statistical MAC transmission probability
// between a receiver and one interferer, used by BuildSINRPlans when a
// receiver or interferer declares a CSMA/TDMA model.
func macTxProbability(freqHz, rxSensitivityDBm float64, rx, tx mac.Endpoint) float64 {
	kind := mac.None
	switch {
	case rx.CSMA != nil || tx.CSMA != nil:
		kind = mac.CSMA
	case rx.TDMA != nil || tx.TDMA != nil:
		kind = mac.TDMA
	}
	return mac.TxProbability(kind, freqHz, rxSensitivityDBm, rx, tx)
}

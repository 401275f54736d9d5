package controller

import (
	"time"
)

// DeploymentSummary reports the outcome of one Deploy/Teardown cycle, in the
// shape pkg/reporting renders to console or JSON.
type DeploymentSummary struct {
	TopologyName string        `json:"topology_name"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     string        `json:"duration"`
	FinalState   string        `json:"final_state"`
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	Links        []LinkSummary `json:"links"`
}

// LinkSummary is one converged link's last-applied shape.
type LinkSummary struct {
	LinkID      string  `json:"link_id"`
	TxNode      string  `json:"tx_node"`
	TxInterface string  `json:"tx_interface"`
	DelayMs     float64 `json:"delay_ms"`
	JitterMs    float64 `json:"jitter_ms"`
	LossPercent float64 `json:"loss_percent"`
	RateMbps    float64 `json:"rate_mbps"`
	Viable      bool    `json:"viable"`
}

// Summary builds a DeploymentSummary from the controller's current state and
// the results of its last convergence pass.
func (c *Controller) Summary(start time.Time, err error) DeploymentSummary {
	c.mu.Lock()
	top := c.top
	state := c.state
	links := append([]LinkPlan(nil), c.links...)
	fixed := append([]FixedEndpoint(nil), c.fixedLinks...)
	bridge := append([]LinkPlan(nil), c.bridgeLinks...)
	results := c.results
	c.mu.Unlock()

	s := DeploymentSummary{
		StartTime:  start,
		EndTime:    time.Now(),
		FinalState: state.String(),
		Success:    err == nil,
	}
	if top != nil {
		s.TopologyName = top.Name
	}
	if err != nil {
		s.Message = err.Error()
	}
	s.Duration = s.EndTime.Sub(s.StartTime).String()

	for _, plan := range append(links, bridge...) {
		result, ok := results[plan.Request.LinkID]
		ls := LinkSummary{LinkID: plan.Request.LinkID, TxNode: plan.TxNode, TxInterface: plan.TxInterface}
		if ok {
			ls.DelayMs = result.Netem.DelayMs
			ls.JitterMs = result.Netem.JitterMs
			ls.LossPercent = result.Netem.LossPercent
			ls.RateMbps = result.Netem.RateMbps
			ls.Viable = result.Viable
		}
		s.Links = append(s.Links, ls)
	}

	for _, ep := range fixed {
		s.Links = append(s.Links, LinkSummary{
			LinkID:      "fixed:" + ep.Node + "." + ep.Interface,
			TxNode:      ep.Node,
			TxInterface: ep.Interface,
			DelayMs:     ep.Shape.DelayMs,
			JitterMs:    ep.Shape.JitterMs,
			LossPercent: ep.Shape.LossPercent,
			RateMbps:    ep.Shape.RateMbps,
			Viable:      true,
		})
	}

	return s
}

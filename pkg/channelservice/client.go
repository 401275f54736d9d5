package channelservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls a running channel service over HTTP. It is the controller's
// only way to reach the channel/link-budget pipeline — keeping that math in
// a separate process lets it be swapped, scaled, or crashed independently
// of orchestration.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client targeting baseURL (e.g. "http://127.0.0.1:9090").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("channel service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("channel service %s: status %d: %s", path, resp.StatusCode, errBody.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LoadScene asks the service to load a scene for the given frequency/bandwidth.
func (c *Client) LoadScene(ctx context.Context, req LoadSceneRequest) error {
	return c.postJSON(ctx, "/scene/load", req, nil)
}

// ComputeLink computes one directional link.
func (c *Client) ComputeLink(ctx context.Context, req LinkRequest) (LinkResult, error) {
	var out LinkResult
	err := c.postJSON(ctx, "/compute/single", req, &out)
	return out, err
}

// ComputeBatch computes many directional links in one round trip.
func (c *Client) ComputeBatch(ctx context.Context, reqs []LinkRequest) ([]LinkResult, error) {
	var out []LinkResult
	err := c.postJSON(ctx, "/compute/batch", reqs, &out)
	return out, err
}

// ComputeSINR computes a link plus its SINR breakdown against interferers.
func (c *Client) ComputeSINR(ctx context.Context, req SINRRequest) (LinkResult, SINRResult, error) {
	var out struct {
		Link LinkResult `json:"link"`
		SINR SINRResult `json:"sinr"`
	}
	err := c.postJSON(ctx, "/compute/sinr", req, &out)
	return out.Link, out.SINR, err
}

// UpdateTransmissionState reports interface activity changes and gets back
// the link identifiers that need recompute.
func (c *Client) UpdateTransmissionState(ctx context.Context, states map[string]bool) ([]string, error) {
	var out TransmissionStateResponse
	err := c.postJSON(ctx, "/transmission/state", TransmissionStateRequest{States: states}, &out)
	return out.AffectedLinks, err
}

// VisualizationState fetches the current visualization snapshot.
func (c *Client) VisualizationState(ctx context.Context) (VisualizationState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/visualization/state", nil)
	if err != nil {
		return VisualizationState{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return VisualizationState{}, fmt.Errorf("channel service /visualization/state: %w", err)
	}
	defer resp.Body.Close()

	var out VisualizationState
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VisualizationState{}, fmt.Errorf("decode visualization state: %w", err)
	}
	return out, nil
}

// Health checks the service's liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("channel service health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("channel service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

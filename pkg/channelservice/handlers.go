package channelservice

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers wires a State to a set of chi routes. Each endpoint reports its
// errors with one fixed status, whatever the error's kind: a request body
// that does not decode is a 400, a scene load failure is a 502, and a failed
// single-link or SINR computation is a 422.
type Handlers struct {
	state   *State
	log     zerolog.Logger
	metrics *Metrics
}

// NewHandlers builds request handlers around state, logging through log and
// recording request outcomes to metrics (nil disables metrics recording).
func NewHandlers(state *State, log zerolog.Logger, metrics *Metrics) *Handlers {
	return &Handlers{state: state, log: log, metrics: metrics}
}

// Routes registers every channel-service endpoint on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/scene/load", h.timed("scene_load", h.loadScene))
	r.Post("/compute/single", h.timed("compute_single", h.computeSingle))
	r.Post("/compute/batch", h.timed("compute_batch", h.computeBatch))
	r.Post("/compute/sinr", h.timed("compute_sinr", h.computeSINR))
	r.Post("/transmission/state", h.timed("transmission_state", h.transmissionState))
	r.Get("/visualization/state", h.visualizationState)
}

// statusRecorder captures the status code written by the wrapped handler so
// timed can classify the outcome label without each handler reporting it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (h *Handlers) timed(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if h.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		outcome := "ok"
		if rec.status >= 400 {
			outcome = "error"
		}
		h.metrics.Observe(endpoint, outcome, start)
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) loadScene(w http.ResponseWriter, r *http.Request) {
	var req LoadSceneRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.state.LoadScene(req); err != nil {
		h.log.Error().Err(err).Str("file", req.File).Msg("scene load failed")
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) computeSingle(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.state.ComputeLink(req)
	if err != nil {
		h.log.Error().Err(err).Str("link_id", req.LinkID).Msg("compute link failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) computeBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []LinkRequest
	if !decodeJSON(w, r, &reqs) {
		return
	}
	writeJSON(w, http.StatusOK, h.state.ComputeBatch(reqs))
}

func (h *Handlers) computeSINR(w http.ResponseWriter, r *http.Request) {
	var req SINRRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	link, sinr, err := h.state.ComputeSINR(req)
	if err != nil {
		h.log.Error().Err(err).Str("link_id", req.Link.LinkID).Msg("compute sinr failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Link LinkResult `json:"link"`
		SINR SINRResult `json:"sinr"`
	}{link, sinr})
}

func (h *Handlers) transmissionState(w http.ResponseWriter, r *http.Request) {
	var req TransmissionStateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	affected := h.state.UpdateTransmissionState(req.States)
	writeJSON(w, http.StatusOK, TransmissionStateResponse{AffectedLinks: affected})
}

func (h *Handlers) visualizationState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.VisualizationState())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}

// Package mobility exposes the position-update HTTP endpoint that lets an
// external driver move a node's wireless interface and trigger the
// controller to re-converge only the links it affects.
package mobility

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// Repositioner mutates a node's wireless position and reconverges the
// affected links. Satisfied by *pkg/controller.Controller.
type Repositioner interface {
	Reposition(ctx context.Context, node, iface string, pos topology.Position) error
	Position(node, iface string) (topology.Position, bool)
	AllPositions() map[string]map[string]topology.Position
}

// Handlers wires a Repositioner to the mobility HTTP API.
type Handlers struct {
	ctrl Repositioner
	log  zerolog.Logger
}

// NewHandlers builds mobility handlers around ctrl.
func NewHandlers(ctrl Repositioner, log zerolog.Logger) *Handlers {
	return &Handlers{ctrl: ctrl, log: log}
}

// Routes registers the mobility endpoints on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/mobility/update", h.update)
	r.Get("/mobility/position/{node}", h.position)
	r.Get("/nodes", h.nodes)
}

type updateRequest struct {
	Node      string  `json:"node"`
	Interface string  `json:"interface,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

type positionResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// nodeResponse is one node's entry in the GET /nodes listing: its wireless
// interfaces keyed by name, each carrying its current position.
type nodeResponse struct {
	Interfaces map[string]positionResponse `json:"interfaces"`
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Node == "" {
		writeError(w, http.StatusBadRequest, errNodeRequired)
		return
	}

	pos := topology.Position{X: req.X, Y: req.Y, Z: req.Z}
	if err := h.ctrl.Reposition(r.Context(), req.Node, req.Interface, pos); err != nil {
		h.log.Error().Err(err).Str("node", req.Node).Msg("mobility update failed")
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct{}{})
}

func (h *Handlers) position(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	pos, ok := h.ctrl.Position(node, "")
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownNode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(positionResponse{X: pos.X, Y: pos.Y, Z: pos.Z})
}

// nodes reports every node's wireless interfaces and their current
// positions, in the shape { <node>: { interfaces: { <iface>: {x,y,z} } } }.
func (h *Handlers) nodes(w http.ResponseWriter, r *http.Request) {
	all := h.ctrl.AllPositions()
	resp := make(map[string]nodeResponse, len(all))
	for node, ifaces := range all {
		entry := nodeResponse{Interfaces: make(map[string]positionResponse, len(ifaces))}
		for iface, pos := range ifaces {
			entry.Interfaces[iface] = positionResponse{X: pos.X, Y: pos.Y, Z: pos.Z}
		}
		resp[node] = entry
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// statusFor maps a classified controller error to an HTTP status: topology
// errors (unknown node or interface) are a 422, runtime errors (a teardown in
// progress, nothing deployed) are a 409, and everything else is a 500.
func statusFor(err error) int {
	switch classify.KindOf(err) {
	case classify.Topology:
		return http.StatusUnprocessableEntity
	case classify.RuntimeK:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{err.Error()})
}

var (
	errNodeRequired = errString("node is required")
	errUnknownNode  = errString("unknown node")
)

type errString string

func (e errString) Error() string { return string(e) }

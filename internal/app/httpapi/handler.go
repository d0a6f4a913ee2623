// Package httpapi exposes the trace layer over REST and a websocket state
// stream for the dashboard.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/state"
	"github.com/PolkaTrace/trace_layer/internal/errors"
	"github.com/PolkaTrace/trace_layer/pkg/format"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// handler bundles the HTTP endpoints over the state controller.
type handler struct {
	ctrl *state.Controller
	log  *logger.Logger
}

// NewHandler returns a router exposing the core REST API and the state
// stream.
func NewHandler(ctrl *state.Controller, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{ctrl: ctrl, log: log}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/session/connect", h.connect).Methods(http.MethodPost)
	api.HandleFunc("/session/select", h.selectAccount).Methods(http.MethodPost)
	api.HandleFunc("/session/disconnect", h.disconnect).Methods(http.MethodPost)
	api.HandleFunc("/session", h.session).Methods(http.MethodGet)

	api.HandleFunc("/state", h.snapshot).Methods(http.MethodGet)
	api.HandleFunc("/state/ws", h.stream).Methods(http.MethodGet)

	api.HandleFunc("/products", h.registerProduct).Methods(http.MethodPost)
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/verify", h.verifyProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/events", h.logEvent).Methods(http.MethodPost)

	api.HandleFunc("/admin", h.admin).Methods(http.MethodGet)
	api.HandleFunc("/admin/authorizations", h.listAuthorized).Methods(http.MethodGet)
	api.HandleFunc("/admin/authorizations/{address}", h.grantAuthorization).Methods(http.MethodPut)
	api.HandleFunc("/admin/authorizations/{address}", h.revokeAuthorization).Methods(http.MethodDelete)

	api.HandleFunc("/events/recent", h.recentTransitions).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	return r
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Connect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Current())
}

func (h *handler) selectAccount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation(err.Error()))
		return
	}
	if strings.TrimSpace(payload.Address) == "" {
		writeError(w, errors.Validation("address is required"))
		return
	}

	if err := h.ctrl.SelectAccount(r.Context(), payload.Address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Current())
}

func (h *handler) disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Disconnect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Current())
}

func (h *handler) session(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected":  snap.Connected,
		"accounts":   snap.Accounts,
		"selected":   snap.Selected,
		"balance":    snap.Balance,
		"authorized": snap.Authorized,
	})
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Current())
}

func (h *handler) registerProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Metadata string `json:"metadata"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation(err.Error()))
		return
	}

	if !format.ValidMetadata(payload.Metadata) {
		writeError(w, errors.Validation("metadata must be at least 3 characters"))
		return
	}

	created, err := h.ctrl.RegisterProduct(r.Context(), payload.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	manufacturer := r.URL.Query().Get("manufacturer")

	switch {
	case owner != "" && manufacturer != "":
		writeError(w, errors.Validation("owner and manufacturer filters are mutually exclusive"))
	case owner != "":
		list, err := h.ctrl.ProductsByOwner(r.Context(), owner)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case manufacturer != "":
		list, err := h.ctrl.ProductsByManufacturer(r.Context(), manufacturer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	default:
		writeError(w, errors.Validation("owner or manufacturer query parameter is required"))
	}
}

// pathProductID extracts and validates the product id path segment. IDs are
// positive integer strings; anything else is rejected before reaching the
// ledger.
func pathProductID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !format.ValidProductID(id) {
		writeError(w, errors.Validation(fmt.Sprintf("malformed product id %q", id)))
		return "", false
	}
	return id, true
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProductID(w, r)
	if !ok {
		return
	}
	p, err := h.ctrl.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) verifyProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProductID(w, r)
	if !ok {
		return
	}
	exists, err := h.ctrl.VerifyProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id,
		"exists":     exists,
	})
}

func (h *handler) logEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathProductID(w, r)
	if !ok {
		return
	}

	var payload struct {
		EventType string `json:"event_type"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.Validation(err.Error()))
		return
	}

	eventType, err := product.ParseEventType(payload.EventType)
	if err != nil {
		writeError(w, errors.Validation(fmt.Sprintf("unknown event type %q", payload.EventType)))
		return
	}

	updated, err := h.ctrl.LogEvent(r.Context(), id, eventType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) admin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"admin": h.ctrl.Current().Admin,
	})
}

func (h *handler) listAuthorized(w http.ResponseWriter, r *http.Request) {
	list, err := h.ctrl.Authorized(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) grantAuthorization(w http.ResponseWriter, r *http.Request) {
	h.setAuthorization(w, r, true)
}

func (h *handler) revokeAuthorization(w http.ResponseWriter, r *http.Request) {
	h.setAuthorization(w, r, false)
}

func (h *handler) setAuthorization(w http.ResponseWriter, r *http.Request, grant bool) {
	address := mux.Vars(r)["address"]
	if err := h.ctrl.SetAuthorization(r.Context(), address, grant); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":    address,
		"authorized": grant,
	})
}

func (h *handler) recentTransitions(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, errors.Validation("n must be a positive integer"))
			return
		}
		n = parsed
	}

	transitions := h.ctrl.Audit().Recent(n)
	if transitions == nil {
		transitions = []state.Transition{}
	}
	writeJSON(w, http.StatusOK, transitions)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var body interface{} = map[string]string{"error": err.Error()}
	if se := errors.GetServiceError(err); se != nil {
		status = se.HTTPStatus()
		body = map[string]interface{}{"error": se}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/auth"
	"rtls-go-server/internal/data"
	"rtls-go-server/internal/pipeline"
	"rtls-go-server/internal/registry"
	"rtls-go-server/internal/settings"
	"rtls-go-server/internal/stats"
	"rtls-go-server/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler carries the wired components for both routers.
type Handler struct {
	devices  *registry.DeviceRegistry
	fences   *registry.GeofenceRegistry
	engine   *alerting.Engine
	pipe     *pipeline.Pipeline
	facade   *stats.Facade
	settings *settings.Store
	hub      *websocket.Hub
	auth     *auth.Manager
}

func NewHandler(
	devices *registry.DeviceRegistry,
	fences *registry.GeofenceRegistry,
	engine *alerting.Engine,
	pipe *pipeline.Pipeline,
	facade *stats.Facade,
	st *settings.Store,
	hub *websocket.Hub,
	authManager *auth.Manager,
) *Handler {
	return &Handler{
		devices:  devices,
		fences:   fences,
		engine:   engine,
		pipe:     pipe,
		facade:   facade,
		settings: st,
		hub:      hub,
		auth:     authManager,
	}
}

// --- Auth ---

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	role, err := h.auth.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.auth.GenerateJWT(req.Username, role)
	if err != nil {
		log.Printf("Error generating token for %s: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "role": role})
}

// --- Telemetry ingest ---

// HandleTelemetry receives readings from sensor translators and pushes them
// through the evaluation pipeline.
func (h *Handler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	defer r.Body.Close()

	deviceID, reading, err := data.ParseTelemetry(body)
	if err != nil {
		log.Printf("Error parsing telemetry: %v", err)
		writeError(w, http.StatusBadRequest, "cannot parse telemetry payload")
		return
	}

	device, err := h.pipe.ReportTelemetry(deviceID, *reading)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "received", "device": device})
}

// --- Devices ---

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.devices.List())
}

func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req data.Device
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}
	if req.TemperatureThreshold == 0 {
		req.TemperatureThreshold = h.settings.Get().DefaultTemperatureThreshold
	}

	device, err := h.devices.Create(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch registry.DevicePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	prev, err := h.devices.Get(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if _, err := h.devices.Update(id, patch); err != nil {
		h.writeDomainError(w, err)
		return
	}

	// Manual edits can change thresholds, position or the offline toggle,
	// so derived state must be refreshed immediately.
	device, err := h.pipe.ReevaluateFrom(prev)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.devices.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Geofences ---

func (h *Handler) ListGeofences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.fences.List())
}

func (h *Handler) CreateGeofence(w http.ResponseWriter, r *http.Request) {
	var req data.Geofence
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	fence, err := h.fences.Create(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fence)
}

func (h *Handler) GetGeofence(w http.ResponseWriter, r *http.Request) {
	fence, err := h.fences.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fence)
}

func (h *Handler) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var patch registry.GeofencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	fence, err := h.fences.Update(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fence)
}

func (h *Handler) SetGeofenceActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	fence, err := h.fences.SetActive(chi.URLParam(r, "id"), req.Active)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fence)
}

func (h *Handler) DeleteGeofence(w http.ResponseWriter, r *http.Request) {
	if err := h.fences.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Alerts ---

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter := alerting.Filter{
		Severity: data.AlertSeverity(r.URL.Query().Get("severity")),
		State:    r.URL.Query().Get("state"),
	}
	writeJSON(w, http.StatusOK, h.engine.List(filter))
}

func (h *Handler) MarkAlertRead(w http.ResponseWriter, r *http.Request) {
	alert, err := h.engine.MarkRead(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.engine.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings / stats ---

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Get())
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	updated, err := h.settings.Update(patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.GetStats())
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, h.facade.GetAnalytics(limit))
}

// --- Configuration export/import ---

// Snapshot is the portable configuration format of the desktop console's
// import/export menu.
type Snapshot struct {
	ExportedAt time.Time           `json:"exportedAt"`
	Devices    []*data.Device      `json:"devices"`
	Geofences  []*data.Geofence    `json:"geofences"`
	Settings   data.SystemSettings `json:"settings"`
}

func (h *Handler) ExportConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Snapshot{
		ExportedAt: time.Now(),
		Devices:    h.devices.List(),
		Geofences:  h.fences.List(),
		Settings:   h.settings.Get(),
	})
}

func (h *Handler) ImportConfig(w http.ResponseWriter, r *http.Request) {
	var snap Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}

	if err := h.devices.Restore(snap.Devices); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.fences.Restore(snap.Geofences); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.settings.Replace(snap.Settings)

	log.Printf("Configuration imported: %d devices, %d geofences", len(snap.Devices), len(snap.Geofences))
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// --- WebSocket ---

// HandleWebSocket upgrades a console connection and registers it with the
// hub. The fresh client gets an immediate snapshot so it doesn't have to
// wait for the next tick.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	h.hub.NotifySnapshot(h.devices.List(), h.engine.List(alerting.Filter{}))
}

// --- helpers ---

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrDeviceNotFound),
		errors.Is(err, registry.ErrGeofenceNotFound),
		errors.Is(err, alerting.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case registry.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

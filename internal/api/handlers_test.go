package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/auth"
	"rtls-go-server/internal/config"
	"rtls-go-server/internal/data"
	"rtls-go-server/internal/evaluator"
	"rtls-go-server/internal/history"
	"rtls-go-server/internal/pipeline"
	"rtls-go-server/internal/registry"
	"rtls-go-server/internal/settings"
	"rtls-go-server/internal/stats"
	"rtls-go-server/internal/websocket"
)

const testAPIKey = "test-ingest-key"

type testEnv struct {
	console *httptest.Server
	ingest  *httptest.Server
	token   string
	engine  *alerting.Engine
	devices *registry.DeviceRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.JWTExpiration = 60
	cfg.Auth.APIKeys = []string{testAPIKey}
	cfg.Auth.Users = []config.User{{Username: "admin", PasswordHash: hash, Role: "admin"}}

	devices := registry.NewDeviceRegistry()
	fences := registry.NewGeofenceRegistry()
	engine := alerting.NewEngine(nil)
	hist := history.NewBuffer(100)
	pipe := pipeline.New(devices, fences, engine, hist, evaluator.Config{
		WarningMargin:       2.0,
		LowBatteryThreshold: 20,
		OfflineAfter:        time.Hour,
	})
	st := settings.NewStore(data.SystemSettings{
		TemperatureUnit:             "celsius",
		DefaultTemperatureThreshold: 25.0,
		UpdateInterval:              10,
		AlertRetention:              30,
	})
	facade := stats.NewFacade(devices, engine, hist)
	hub := websocket.NewHub()

	h := NewHandler(devices, fences, engine, pipe, facade, st, hub, auth.NewManager(cfg))

	env := &testEnv{
		console: httptest.NewServer(SetupConsoleRouter(h)),
		ingest:  httptest.NewServer(SetupIngestRouter(h)),
		engine:  engine,
		devices: devices,
	}
	t.Cleanup(env.console.Close)
	t.Cleanup(env.ingest.Close)

	env.token = env.login(t, "admin", "admin123")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp, err := http.Post(e.console.URL+"/api/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out["token"] == "" {
		t.Fatal("empty token")
	}
	return out["token"]
}

// do issues an authenticated console API request and decodes the response
// into out when it is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.console.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func (e *testEnv) postTelemetry(t *testing.T, apiKey, payload string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, e.ingest.URL+"/telemetry", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post telemetry: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	body := `{"username":"admin","password":"wrong"}`
	resp, err := http.Post(env.console.URL+"/api/auth/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password: got %d, want 401", resp.StatusCode)
	}
}

func TestConsoleAPIRequiresJWT(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, err := http.Get(env.console.URL + "/api/devices")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.console.URL+"/api/devices", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token: got %d, want 401", resp2.StatusCode)
	}
}

func TestDeviceCRUDOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var created data.Device
	resp := env.do(t, http.MethodPost, "/api/devices", map[string]interface{}{
		"name":       "Warehouse Sensor",
		"macAddress": "00:1B:44:11:3A:B7",
		"latitude":   52.52,
		"longitude":  13.405,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", resp.StatusCode)
	}
	if created.ID == "" {
		t.Fatal("created device has no id")
	}
	// Threshold omitted: filled from the settings default.
	if created.TemperatureThreshold != 25.0 {
		t.Errorf("default threshold: got %v", created.TemperatureThreshold)
	}

	var list []data.Device
	env.do(t, http.MethodGet, "/api/devices", nil, &list)
	if len(list) != 1 {
		t.Fatalf("list: got %d devices", len(list))
	}

	var updated data.Device
	resp = env.do(t, http.MethodPut, "/api/devices/"+created.ID,
		map[string]interface{}{"name": "Renamed Sensor"}, &updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %d", resp.StatusCode)
	}
	if updated.Name != "Renamed Sensor" {
		t.Errorf("update: %+v", updated)
	}

	resp = env.do(t, http.MethodDelete, "/api/devices/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %d", resp.StatusCode)
	}

	var errBody map[string]string
	resp = env.do(t, http.MethodGet, "/api/devices/"+created.ID, nil, &errBody)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", resp.StatusCode)
	}
	if errBody["error"] == "" {
		t.Error("error responses must carry an error field")
	}
}

func TestDeviceValidationOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var errBody map[string]string
	resp := env.do(t, http.MethodPost, "/api/devices",
		map[string]interface{}{"name": "Bad", "latitude": 91.0}, &errBody)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid latitude: got %d, want 400", resp.StatusCode)
	}
	if errBody["error"] == "" {
		t.Error("validation failure must carry an error field")
	}
}

func TestTelemetryIngestAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	if resp := env.postTelemetry(t, "", `{"deviceId":"x","temperature":20}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: got %d, want 401", resp.StatusCode)
	}
	if resp := env.postTelemetry(t, "wrong-key", `{"deviceId":"x","temperature":20}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: got %d, want 401", resp.StatusCode)
	}
}

func TestTelemetryIngestToAlert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	created, err := env.devices.Create(data.Device{
		Name:                 "Cold Store Sensor",
		Temperature:          22.5,
		TemperatureThreshold: 25.0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	payload := fmt.Sprintf(`{"deviceId":%q,"temperature":28.3}`, created.ID)
	resp := env.postTelemetry(t, testAPIKey, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status: %d", resp.StatusCode)
	}

	var out struct {
		Status string       `json:"status"`
		Device *data.Device `json:"device"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "received" || out.Device.Status != data.StatusCritical {
		t.Errorf("ingest response: %+v", out)
	}

	var alerts []data.Alert
	env.do(t, http.MethodGet, "/api/alerts?state=active&severity=critical", nil, &alerts)
	if len(alerts) != 1 || !strings.Contains(alerts[0].Message, "28.3") {
		t.Fatalf("alerts after excursion: %+v", alerts)
	}

	// Lifecycle over HTTP: read, resolve, resolve again (idempotent).
	var read data.Alert
	env.do(t, http.MethodPost, "/api/alerts/"+alerts[0].ID+"/read", nil, &read)
	if read.State != data.AlertRead {
		t.Errorf("read state: %s", read.State)
	}
	var resolved data.Alert
	env.do(t, http.MethodPost, "/api/alerts/"+alerts[0].ID+"/resolve", nil, &resolved)
	if resolved.State != data.AlertResolved {
		t.Errorf("resolved state: %s", resolved.State)
	}
	r2 := env.do(t, http.MethodPost, "/api/alerts/"+alerts[0].ID+"/resolve", nil, &resolved)
	if r2.StatusCode != http.StatusOK {
		t.Errorf("second resolve: got %d, want 200", r2.StatusCode)
	}

	if resp := env.postTelemetry(t, testAPIKey, `not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed payload: got %d, want 400", resp.StatusCode)
	}
	if resp := env.postTelemetry(t, testAPIKey, `{"deviceId":"ghost","temperature":20}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown device: got %d, want 404", resp.StatusCode)
	}
}

func TestGeofenceEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var created data.Geofence
	resp := env.do(t, http.MethodPost, "/api/geofences", map[string]interface{}{
		"name":        "Secure Zone A",
		"center":      map[string]float64{"latitude": 52.52, "longitude": 13.405},
		"radius":      500,
		"alertOnExit": true,
		"isActive":    true,
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", resp.StatusCode)
	}

	var toggled data.Geofence
	resp = env.do(t, http.MethodPut, "/api/geofences/"+created.ID+"/active",
		map[string]bool{"active": false}, &toggled)
	if resp.StatusCode != http.StatusOK || toggled.IsActive {
		t.Errorf("toggle: status=%d active=%v", resp.StatusCode, toggled.IsActive)
	}

	var errBody map[string]string
	resp = env.do(t, http.MethodPost, "/api/geofences", map[string]interface{}{
		"name":   "Bad Zone",
		"center": map[string]float64{"latitude": 52.52, "longitude": 13.405},
		"radius": -5,
	}, &errBody)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative radius: got %d, want 400", resp.StatusCode)
	}
}

func TestSettingsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var updated data.SystemSettings
	resp := env.do(t, http.MethodPut, "/api/settings",
		map[string]interface{}{"updateInterval": 5}, &updated)
	if resp.StatusCode != http.StatusOK || updated.UpdateInterval != 5 {
		t.Errorf("update: status=%d interval=%d", resp.StatusCode, updated.UpdateInterval)
	}
	// Unpatched fields survive.
	if updated.TemperatureUnit != "celsius" {
		t.Errorf("unit changed: %q", updated.TemperatureUnit)
	}

	resp = env.do(t, http.MethodPut, "/api/settings",
		map[string]interface{}{"temperatureUnit": "kelvin"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("kelvin: got %d, want 400", resp.StatusCode)
	}
}

func TestStatsAndAnalyticsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.devices.Create(data.Device{Name: "A", Temperature: 20, TemperatureThreshold: 25})
	env.devices.Create(data.Device{Name: "B", Temperature: 22, TemperatureThreshold: 25})

	var st data.SystemStats
	resp := env.do(t, http.MethodGet, "/api/stats", nil, &st)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status: %d", resp.StatusCode)
	}
	if st.TotalDevices != 2 || st.AverageTemperature != 21.0 {
		t.Errorf("stats: %+v", st)
	}

	var an data.AnalyticsData
	resp = env.do(t, http.MethodGet, "/api/analytics?limit=10", nil, &an)
	if resp.StatusCode != http.StatusOK || an.TotalDevices != 2 {
		t.Errorf("analytics: status=%d %+v", resp.StatusCode, an)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.devices.Create(data.Device{Name: "Exported Sensor", Temperature: 20, TemperatureThreshold: 25})

	var snap Snapshot
	resp := env.do(t, http.MethodGet, "/api/export", nil, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status: %d", resp.StatusCode)
	}
	if len(snap.Devices) != 1 {
		t.Fatalf("export devices: %d", len(snap.Devices))
	}

	// Wipe and restore from the snapshot.
	env.devices.Restore(nil)
	var out map[string]string
	resp = env.do(t, http.MethodPost, "/api/import", snap, &out)
	if resp.StatusCode != http.StatusOK || out["status"] != "imported" {
		t.Fatalf("import: status=%d %+v", resp.StatusCode, out)
	}

	var list []data.Device
	env.do(t, http.MethodGet, "/api/devices", nil, &list)
	if len(list) != 1 || list[0].Name != "Exported Sensor" {
		t.Errorf("after import: %+v", list)
	}
}

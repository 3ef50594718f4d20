package registry

import (
	"errors"
	"testing"
	"time"

	"rtls-go-server/internal/data"
)

func TestCreateDeviceDefaults(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	before := time.Now()

	created, err := r.Create(data.Device{
		Name:                 "Warehouse Sensor",
		MACAddress:           "00:1B:44:11:3A:B7",
		Latitude:             52.52,
		Longitude:            13.405,
		Temperature:          21.0,
		TemperatureThreshold: 25.0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}
	if created.Status != data.StatusOnline {
		t.Errorf("status: got %s, want online", created.Status)
	}
	if created.BatteryLevel != 100 {
		t.Errorf("battery: got %d, want 100", created.BatteryLevel)
	}
	if created.LastUpdate.Before(before) {
		t.Error("lastUpdate not refreshed on create")
	}

	got, err := r.Get(created.ID)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if got.Name != "Warehouse Sensor" || got.MACAddress != "00:1B:44:11:3A:B7" ||
		got.Temperature != 21.0 || got.TemperatureThreshold != 25.0 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreateDeviceValidation(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()

	if _, err := r.Create(data.Device{Latitude: 52.52}); !IsValidation(err) {
		t.Errorf("empty name: got %v, want validation error", err)
	}
	if _, err := r.Create(data.Device{Name: "x", Latitude: 91}); !IsValidation(err) {
		t.Errorf("latitude 91: got %v, want validation error", err)
	}
	if _, err := r.Create(data.Device{Name: "x", Longitude: -181}); !IsValidation(err) {
		t.Errorf("longitude -181: got %v, want validation error", err)
	}
}

func TestGetUnknownDevice(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	if _, err := r.Get("missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("got %v, want ErrDeviceNotFound", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	created, err := r.Create(data.Device{Name: "Sensor", TemperatureThreshold: 25})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Renamed"
	threshold := 30.0
	updated, err := r.Update(created.ID, DevicePatch{Name: &name, TemperatureThreshold: &threshold})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" || updated.TemperatureThreshold != 30.0 {
		t.Errorf("merge failed: %+v", updated)
	}
	if !updated.LastUpdate.After(created.LastUpdate) && !updated.LastUpdate.Equal(created.LastUpdate) {
		t.Error("lastUpdate not refreshed on update")
	}

	// Only offline/online may be set directly; warning and critical are
	// evaluator-owned.
	critical := data.StatusCritical
	if _, err := r.Update(created.ID, DevicePatch{Status: &critical}); !IsValidation(err) {
		t.Errorf("direct critical: got %v, want validation error", err)
	}
	offline := data.StatusOffline
	if _, err := r.Update(created.ID, DevicePatch{Status: &offline}); err != nil {
		t.Errorf("offline toggle rejected: %v", err)
	}
}

func TestDeleteDevice(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	created, _ := r.Create(data.Device{Name: "Sensor"})

	if err := r.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(created.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second delete: got %v, want ErrDeviceNotFound", err)
	}
}

func TestApplyTelemetry(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	created, _ := r.Create(data.Device{Name: "Sensor", Temperature: 20})

	temp := 23.456
	battery := 150 // clamped
	updated, err := r.ApplyTelemetry(created.ID, data.TelemetryReading{
		Temperature:  &temp,
		BatteryLevel: &battery,
	})
	if err != nil {
		t.Fatalf("apply telemetry: %v", err)
	}
	if updated.Temperature != 23.5 {
		t.Errorf("temperature rounding: got %v, want 23.5", updated.Temperature)
	}
	if updated.BatteryLevel != 100 {
		t.Errorf("battery clamp: got %d, want 100", updated.BatteryLevel)
	}
}

func TestListIsCopy(t *testing.T) {
	t.Parallel()

	r := NewDeviceRegistry()
	created, _ := r.Create(data.Device{Name: "Sensor"})

	list := r.List()
	list[0].Name = "mutated"

	got, _ := r.Get(created.ID)
	if got.Name != "Sensor" {
		t.Error("List must return copies, registry state was mutated")
	}
}

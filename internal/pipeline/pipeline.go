package pipeline

import (
	"time"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/data"
	"rtls-go-server/internal/evaluator"
	"rtls-go-server/internal/history"
	"rtls-go-server/internal/registry"
)

// Ingestor is the boundary a telemetry source talks to. The HTTP ingest
// endpoint and the simulator both feed this; a real sensor adapter would
// implement nothing more.
type Ingestor interface {
	ReportTelemetry(deviceID string, reading data.TelemetryReading) (*data.Device, error)
}

// Pipeline wires one telemetry mutation through the evaluator and the alert
// engine: registry write -> status/containment derivation -> alert policy.
// It is the single source of truth for status derivation; no other layer
// recomputes it.
type Pipeline struct {
	devices *registry.DeviceRegistry
	fences  *registry.GeofenceRegistry
	engine  *alerting.Engine
	history *history.Buffer
	eval    evaluator.Config
}

func New(devices *registry.DeviceRegistry, fences *registry.GeofenceRegistry, engine *alerting.Engine, hist *history.Buffer, eval evaluator.Config) *Pipeline {
	return &Pipeline{
		devices: devices,
		fences:  fences,
		engine:  engine,
		history: hist,
		eval:    eval,
	}
}

// ReportTelemetry applies one reading and runs the full evaluation chain.
// A reading is proof of life: it brings an offline device back before the
// evaluator runs.
func (p *Pipeline) ReportTelemetry(deviceID string, reading data.TelemetryReading) (*data.Device, error) {
	prev, err := p.devices.Get(deviceID)
	if err != nil {
		return nil, err
	}

	if prev.Status == data.StatusOffline {
		online := data.StatusOnline
		if _, err := p.devices.Update(deviceID, registry.DevicePatch{Status: &online}); err != nil {
			return nil, err
		}
	}

	device, err := p.devices.ApplyTelemetry(deviceID, reading)
	if err != nil {
		return nil, err
	}
	return p.evaluate(device, prev)
}

// Reevaluate re-derives a device without new telemetry, used by the
// staleness sweep.
func (p *Pipeline) Reevaluate(deviceID string) (*data.Device, error) {
	device, err := p.devices.Get(deviceID)
	if err != nil {
		return nil, err
	}
	return p.evaluate(device, device)
}

// ReevaluateFrom re-derives a device after a manual edit, keeping the
// caller's pre-edit snapshot as the transition baseline so toggling a
// device offline still counts as an offline entry.
func (p *Pipeline) ReevaluateFrom(prev *data.Device) (*data.Device, error) {
	device, err := p.devices.Get(prev.ID)
	if err != nil {
		return nil, err
	}
	return p.evaluate(device, prev)
}

func (p *Pipeline) evaluate(device, prev *data.Device) (*data.Device, error) {
	fences := p.fences.List()
	now := time.Now()

	prevContaining := []*data.Geofence{}
	if prev.Status != data.StatusOffline {
		prevContaining = evaluator.ContainingFences(prev.Latitude, prev.Longitude, fences)
	}

	ev := p.eval.Evaluate(device, fences, now)
	// The transition starts from the pre-reading status: a revived device
	// still reports offline -> online, not online -> online.
	ev.Transition.From = prev.Status
	if err := p.devices.ApplyEvaluation(device.ID, ev.Status, ev.InGeofence); err != nil {
		return nil, err
	}
	device.Status = ev.Status
	device.InGeofence = ev.InGeofence

	p.engine.ProcessTransition(device, ev.Transition)
	p.engine.ProcessBattery(device, prev.BatteryLevel, p.eval.LowBatteryThreshold)

	if ev.Status != data.StatusOffline {
		exited, entered := diffFences(prevContaining, ev.Containing)
		p.engine.ProcessGeofence(device, exited, entered)
	}

	if p.history != nil && ev.Status != data.StatusOffline {
		p.history.Add(data.TemperatureSample{
			Timestamp: now,
			DeviceID:  device.ID,
			Value:     device.Temperature,
		})
	}

	return device, nil
}

func diffFences(before, after []*data.Geofence) (exited, entered []*data.Geofence) {
	beforeIDs := make(map[string]bool, len(before))
	for _, g := range before {
		beforeIDs[g.ID] = true
	}
	afterIDs := make(map[string]bool, len(after))
	for _, g := range after {
		afterIDs[g.ID] = true
	}

	for _, g := range before {
		if !afterIDs[g.ID] {
			exited = append(exited, g)
		}
	}
	for _, g := range after {
		if !beforeIDs[g.ID] {
			entered = append(entered, g)
		}
	}
	return exited, entered
}

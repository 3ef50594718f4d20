package simulator

import (
	"context"
	"log"
	"math/rand"
	"time"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/data"
	"rtls-go-server/internal/pipeline"
	"rtls-go-server/internal/registry"
	"rtls-go-server/internal/settings"
)

// Broadcaster receives the fleet snapshot after every tick. The websocket
// hub implements it.
type Broadcaster interface {
	NotifySnapshot(devices []*data.Device, alerts []*data.Alert)
}

// Config tunes the telemetry perturbation. Perturb false turns the
// simulator into a pure maintenance loop (staleness sweep, retention purge,
// snapshot broadcast) for deployments with real ingestion.
type Config struct {
	Perturb            bool
	MinTemperature     float64
	MaxTemperature     float64
	MaxStep            float64
	BatteryDecayChance float64
}

// Simulator stands in for real sensor ingestion: each tick it perturbs the
// telemetry of every non-offline device and feeds it through the same
// Ingestor path a hardware adapter would use.
type Simulator struct {
	cfg      Config
	devices  *registry.DeviceRegistry
	pipe     *pipeline.Pipeline
	engine   *alerting.Engine
	settings *settings.Store
	hub      Broadcaster
	rnd      *rand.Rand
}

func New(cfg Config, devices *registry.DeviceRegistry, pipe *pipeline.Pipeline, engine *alerting.Engine, st *settings.Store, hub Broadcaster) *Simulator {
	return &Simulator{
		cfg:      cfg,
		devices:  devices,
		pipe:     pipe,
		engine:   engine,
		settings: st,
		hub:      hub,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks until the context is cancelled. The interval is re-read from
// the settings store before each tick, so updateInterval changes apply
// without restart.
func (s *Simulator) Run(ctx context.Context) {
	for {
		interval := time.Duration(s.settings.Get().UpdateInterval) * time.Second
		if interval <= 0 {
			interval = 10 * time.Second
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Simulator stopped")
			return
		case <-timer.C:
			s.Tick(time.Now())
		}
	}
}

// Tick runs one simulation round. An error for one device is logged and
// skipped; the remaining devices are still processed.
func (s *Simulator) Tick(now time.Time) {
	for _, d := range s.devices.List() {
		if d.Status == data.StatusOffline {
			// Frozen: no simulated telemetry while offline.
			continue
		}

		if s.cfg.Perturb {
			if _, err := s.pipe.ReportTelemetry(d.ID, s.perturb(d, now)); err != nil {
				log.Printf("Simulator: telemetry for %s failed: %v", d.ID, err)
			}
			continue
		}

		if _, err := s.pipe.Reevaluate(d.ID); err != nil {
			log.Printf("Simulator: reevaluation of %s failed: %v", d.ID, err)
		}
	}

	if retention := s.settings.Get().AlertRetention; retention > 0 {
		if purged := s.engine.PurgeResolvedOlderThan(retention, now); purged > 0 {
			log.Printf("Purged %d resolved alerts older than %d days", purged, retention)
		}
	}

	if s.hub != nil {
		s.hub.NotifySnapshot(s.devices.List(), s.engine.List(alerting.Filter{}))
	}
}

func (s *Simulator) perturb(d *data.Device, now time.Time) data.TelemetryReading {
	temp := d.Temperature + (s.rnd.Float64()*2-1)*s.cfg.MaxStep
	if temp < s.cfg.MinTemperature {
		temp = s.cfg.MinTemperature
	} else if temp > s.cfg.MaxTemperature {
		temp = s.cfg.MaxTemperature
	}

	reading := data.TelemetryReading{Timestamp: now, Temperature: &temp}

	if s.rnd.Float64() < s.cfg.BatteryDecayChance && d.BatteryLevel > 0 {
		level := d.BatteryLevel - 1
		reading.BatteryLevel = &level
	}
	return reading
}

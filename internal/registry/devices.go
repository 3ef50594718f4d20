package registry

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rtls-go-server/internal/data"
)

// DeviceRegistry owns every tracked device. All access goes through its
// methods; returned devices are copies, so callers can't mutate shared state.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]*data.Device
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]*data.Device)}
}

// DevicePatch carries a partial device update. Status may only be toggled
// between online and offline; warning/critical are evaluator-owned.
type DevicePatch struct {
	Name                 *string            `json:"name"`
	MACAddress           *string            `json:"macAddress"`
	Latitude             *float64           `json:"latitude"`
	Longitude            *float64           `json:"longitude"`
	Temperature          *float64           `json:"temperature"`
	TemperatureThreshold *float64           `json:"temperatureThreshold"`
	BatteryLevel         *int               `json:"batteryLevel"`
	Zone                 *string            `json:"zone"`
	Firmware             *string            `json:"firmware"`
	Status               *data.DeviceStatus `json:"status"`
}

// Create registers a new device. The registry assigns the id and the
// creation defaults: status online, full battery, fresh lastUpdate.
func (r *DeviceRegistry) Create(d data.Device) (*data.Device, error) {
	if err := validateDevice(&d); err != nil {
		return nil, err
	}

	d.ID = uuid.NewString()
	d.Status = data.StatusOnline
	d.BatteryLevel = 100
	d.InGeofence = false
	d.LastUpdate = time.Now()
	if d.SignalStrength == 0 {
		d.SignalStrength = -40
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID] = &d
	return cloneDevice(&d), nil
}

func (r *DeviceRegistry) Get(id string) (*data.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return cloneDevice(d), nil
}

// List returns all devices sorted by name for stable console output.
func (r *DeviceRegistry) List() []*data.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*data.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, cloneDevice(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *DeviceRegistry) Update(id string, p DevicePatch) (*data.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, invalid("name", "must not be empty")
		}
		d.Name = *p.Name
	}
	if p.MACAddress != nil {
		d.MACAddress = *p.MACAddress
	}
	if p.Latitude != nil {
		if err := validateLatitude(*p.Latitude); err != nil {
			return nil, err
		}
		d.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		if err := validateLongitude(*p.Longitude); err != nil {
			return nil, err
		}
		d.Longitude = *p.Longitude
	}
	if p.Temperature != nil {
		if err := validateFinite("temperature", *p.Temperature); err != nil {
			return nil, err
		}
		d.Temperature = *p.Temperature
	}
	if p.TemperatureThreshold != nil {
		if err := validateFinite("temperatureThreshold", *p.TemperatureThreshold); err != nil {
			return nil, err
		}
		d.TemperatureThreshold = *p.TemperatureThreshold
	}
	if p.BatteryLevel != nil {
		if *p.BatteryLevel < 0 || *p.BatteryLevel > 100 {
			return nil, invalid("batteryLevel", "must be between 0 and 100")
		}
		d.BatteryLevel = *p.BatteryLevel
	}
	if p.Zone != nil {
		d.Zone = *p.Zone
	}
	if p.Firmware != nil {
		d.Firmware = *p.Firmware
	}
	if p.Status != nil {
		if *p.Status != data.StatusOnline && *p.Status != data.StatusOffline {
			return nil, invalid("status", "only online/offline may be set directly")
		}
		d.Status = *p.Status
	}

	d.LastUpdate = time.Now()
	return cloneDevice(d), nil
}

func (r *DeviceRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, id)
	return nil
}

// ApplyTelemetry merges one reading into a device atomically and refreshes
// lastUpdate. It is the single write path for both the HTTP ingest endpoint
// and the simulator.
func (r *DeviceRegistry) ApplyTelemetry(id string, reading data.TelemetryReading) (*data.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	if reading.Temperature != nil {
		d.Temperature = math.Round(*reading.Temperature*10) / 10
	}
	if reading.Latitude != nil {
		d.Latitude = *reading.Latitude
	}
	if reading.Longitude != nil {
		d.Longitude = *reading.Longitude
	}
	if reading.BatteryLevel != nil {
		level := *reading.BatteryLevel
		if level < 0 {
			level = 0
		} else if level > 100 {
			level = 100
		}
		d.BatteryLevel = level
	}
	if reading.SignalStrength != nil {
		d.SignalStrength = *reading.SignalStrength
	}

	if reading.Timestamp.IsZero() {
		d.LastUpdate = time.Now()
	} else {
		d.LastUpdate = reading.Timestamp
	}
	return cloneDevice(d), nil
}

// ApplyEvaluation stores the evaluator's derived fields.
func (r *DeviceRegistry) ApplyEvaluation(id string, status data.DeviceStatus, inGeofence bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.Status = status
	d.InGeofence = inGeofence
	return nil
}

// Restore replaces the whole fleet, used by configuration import.
func (r *DeviceRegistry) Restore(devices []*data.Device) error {
	for _, d := range devices {
		if d.ID == "" {
			return invalid("id", "must not be empty")
		}
		if err := validateDevice(d); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*data.Device, len(devices))
	for _, d := range devices {
		r.devices[d.ID] = cloneDevice(d)
	}
	return nil
}

func validateDevice(d *data.Device) error {
	if d.Name == "" {
		return invalid("name", "must not be empty")
	}
	if err := validateLatitude(d.Latitude); err != nil {
		return err
	}
	if err := validateLongitude(d.Longitude); err != nil {
		return err
	}
	if err := validateFinite("temperature", d.Temperature); err != nil {
		return err
	}
	return validateFinite("temperatureThreshold", d.TemperatureThreshold)
}

func validateLatitude(v float64) error {
	if math.IsNaN(v) || v < -90 || v > 90 {
		return invalid("latitude", "must be between -90 and 90")
	}
	return nil
}

func validateLongitude(v float64) error {
	if math.IsNaN(v) || v < -180 || v > 180 {
		return invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

func validateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	return nil
}

func cloneDevice(d *data.Device) *data.Device {
	copied := *d
	return &copied
}

package data

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNoDeviceID = errors.New("telemetry payload has no device id")

// ParseTelemetry unmarshals a raw ingest payload into a reading. Translator
// scripts are not consistent about key names, so a few aliases are accepted.
func ParseTelemetry(rawData []byte) (string, *TelemetryReading, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(rawData, &payload); err != nil {
		return "", nil, err
	}

	deviceID := stringField(payload, "deviceId", "device_id", "sensor_id", "device")
	if deviceID == "" {
		return "", nil, ErrNoDeviceID
	}

	reading := &TelemetryReading{Timestamp: time.Now()}
	if ts := stringField(payload, "timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			reading.Timestamp = t
		}
	}

	if v, ok := numberField(payload, "temperature", "temp"); ok {
		reading.Temperature = &v
	}
	if v, ok := numberField(payload, "latitude", "lat"); ok {
		reading.Latitude = &v
	}
	if v, ok := numberField(payload, "longitude", "lng", "lon"); ok {
		reading.Longitude = &v
	}
	if v, ok := numberField(payload, "batteryLevel", "battery_level", "battery"); ok {
		level := int(v)
		reading.BatteryLevel = &level
	}
	if v, ok := numberField(payload, "signalStrength", "signal_strength", "rssi"); ok {
		strength := int(v)
		reading.SignalStrength = &strength
	}

	return deviceID, reading, nil
}

func stringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func numberField(payload map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}

package config

import (
	"log"

	"github.com/spf13/viper"

	"rtls-go-server/internal/data"
)

type Config struct {
	Server struct {
		IngestPort  int `mapstructure:"ingest_port"`
		ConsolePort int `mapstructure:"console_port"`
	} `mapstructure:"server"`

	Auth struct {
		JWTSecret     string   `mapstructure:"jwt_secret"`
		JWTExpiration int      `mapstructure:"jwt_expiration"` // minutes
		APIKeys       []string `mapstructure:"api_keys"`
		Users         []User   `mapstructure:"users"`
	} `mapstructure:"auth"`

	Evaluator struct {
		WarningMargin       float64 `mapstructure:"warning_margin"`        // °C below threshold
		LowBatteryThreshold int     `mapstructure:"low_battery_threshold"` // percent
		OfflineAfter        int     `mapstructure:"offline_after"`         // seconds without telemetry
	} `mapstructure:"evaluator"`

	Simulator struct {
		Enabled            bool    `mapstructure:"enabled"`
		MinTemperature     float64 `mapstructure:"min_temperature"`
		MaxTemperature     float64 `mapstructure:"max_temperature"`
		MaxStep            float64 `mapstructure:"max_step"` // ±°C per tick
		BatteryDecayChance float64 `mapstructure:"battery_decay_chance"`
	} `mapstructure:"simulator"`

	Settings data.SystemSettings `mapstructure:"settings"`

	Demo bool `mapstructure:"demo"` // seed the demo fleet on startup
}

type User struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

var AppConfig Config

// LoadConfig reads config.yaml from the given directory, with environment
// variable overrides and defaults for anything missing.
func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: error reading config file, using defaults: %v", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return err
	}

	log.Printf("Configuration loaded: ingest=%d console=%d simulator=%v",
		AppConfig.Server.IngestPort, AppConfig.Server.ConsolePort, AppConfig.Simulator.Enabled)
	return nil
}

func setDefaults() {
	viper.SetDefault("server.ingest_port", 8080)
	viper.SetDefault("server.console_port", 8081)

	viper.SetDefault("auth.jwt_secret", "rtls-dev-secret")
	viper.SetDefault("auth.jwt_expiration", 60)

	viper.SetDefault("evaluator.warning_margin", 2.0)
	viper.SetDefault("evaluator.low_battery_threshold", 20)
	viper.SetDefault("evaluator.offline_after", 300)

	viper.SetDefault("simulator.enabled", true)
	viper.SetDefault("simulator.min_temperature", 0.0)
	viper.SetDefault("simulator.max_temperature", 40.0)
	viper.SetDefault("simulator.max_step", 0.5)
	viper.SetDefault("simulator.battery_decay_chance", 0.1)

	viper.SetDefault("settings.temperature_unit", "celsius")
	viper.SetDefault("settings.default_temperature_threshold", 25.0)
	viper.SetDefault("settings.update_interval", 10)
	viper.SetDefault("settings.alert_retention", 30)
	viper.SetDefault("settings.enable_sound_alerts", true)
	viper.SetDefault("settings.enable_desktop_notifications", true)
	viper.SetDefault("settings.map_provider", "openstreetmap")
	viper.SetDefault("settings.language", "en")

	viper.SetDefault("demo", true)
}

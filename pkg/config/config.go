package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Sensor drivers.
const (
	DriverSerial = "serial"
	DriverMock   = "mock"
)

// Config represents the node configuration.
type Config struct {
	Sensor   SensorConfig   `yaml:"sensor"`
	Sampling SamplingConfig `yaml:"sampling"`
	Heater   HeaterConfig   `yaml:"heater"`
	HTTP     HTTPConfig     `yaml:"http"`
	Time     TimeConfig     `yaml:"time"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Mock     MockConfig     `yaml:"mock"`
}

// SensorConfig selects and addresses the sensor driver.
type SensorConfig struct {
	Driver   string `yaml:"driver" env:"SENSOR_DRIVER"` // "serial" or "mock"
	Port     string `yaml:"port" env:"SENSOR_PORT"`     // Serial port of the MCU bridge
	BaudRate int    `yaml:"baud_rate" env:"SENSOR_BAUD_RATE"`
	Address  uint8  `yaml:"address" env:"SENSOR_ADDRESS"` // I2C address on the bridge side
}

// SamplingConfig contains the moving average window and sampling cadence.
type SamplingConfig struct {
	WindowSize int           `yaml:"window_size" env:"SAMPLING_WINDOW_SIZE"`
	Period     time.Duration `yaml:"period" env:"SAMPLING_PERIOD"`
}

// ReportPeriod is the time it takes to refill the whole window.
func (s SamplingConfig) ReportPeriod() time.Duration {
	return time.Duration(s.WindowSize) * s.Period
}

// HeaterConfig contains the heater duty cycle interval.
type HeaterConfig struct {
	Interval time.Duration `yaml:"interval" env:"HEATER_INTERVAL"`
}

// HTTPConfig contains the status page listener settings.
type HTTPConfig struct {
	Listen  string        `yaml:"listen" env:"HTTP_LISTEN"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT"` // Per-connection request timeout
}

// TimeConfig contains NTP settings for the formatted local time.
type TimeConfig struct {
	NTP            bool          `yaml:"ntp" env:"TIME_NTP"` // When false the host clock is used as is
	NTPServer      string        `yaml:"ntp_server" env:"TIME_NTP_SERVER"`
	UTCOffset      time.Duration `yaml:"utc_offset" env:"TIME_UTC_OFFSET"`
	UpdateInterval time.Duration `yaml:"update_interval" env:"TIME_UPDATE_INTERVAL"`
}

// MQTTConfig contains optional telemetry publishing settings.
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled" env:"MQTT_ENABLED"`
	Broker         string        `yaml:"broker" env:"MQTT_BROKER"`
	ClientID       string        `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	Topic          string        `yaml:"topic" env:"MQTT_TOPIC"`
	QoS            byte          `yaml:"qos" env:"MQTT_QOS"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"MQTT_PUBLISH_TIMEOUT"`
}

// MockConfig contains simulated sensor parameters.
type MockConfig struct {
	Temperature  float32       `yaml:"temperature"`   // Ambient temperature (°C)
	Humidity     float32       `yaml:"humidity"`      // Ambient relative humidity (%)
	NoiseLevel   float32       `yaml:"noise_level"`   // Peak noise amplitude (°C / %)
	HeaterRise   float32       `yaml:"heater_rise"`   // Steady-state temperature rise with heater on (°C)
	TimeConstant time.Duration `yaml:"time_constant"` // Thermal lag of the sensor die
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Driver:   DriverSerial,
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
			Address:  0x40,
		},
		Sampling: SamplingConfig{
			WindowSize: 20,
			Period:     250 * time.Millisecond,
		},
		Heater: HeaterConfig{
			Interval: 5000 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Listen:  ":80",
			Timeout: 2000 * time.Millisecond,
		},
		Time: TimeConfig{
			NTP:            true,
			NTPServer:      "pool.ntp.org",
			UTCOffset:      -5 * time.Hour,
			UpdateInterval: 60 * time.Second,
		},
		MQTT: MQTTConfig{
			Enabled:        false,
			Broker:         "tcp://localhost:1883",
			ClientID:       "htu31d-node",
			Topic:          "sensors/htu31d",
			QoS:            0,
			PublishTimeout: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Format: "console",
			Level:  "info",
		},
		Mock: MockConfig{
			Temperature:  21.5,
			Humidity:     45.0,
			NoiseLevel:   0.05,
			HeaterRise:   3.0,
			TimeConstant: 4 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
// If the file doesn't exist or fields are missing, default values are used.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// No file, keep defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values the node cannot run with.
func (c *Config) Validate() error {
	switch c.Sensor.Driver {
	case DriverSerial:
		if c.Sensor.Port == "" {
			return fmt.Errorf("sensor port is required for the serial driver")
		}
	case DriverMock:
	default:
		return fmt.Errorf("sensor driver must be 'serial' or 'mock', got '%s'", c.Sensor.Driver)
	}

	if c.Sensor.Address > 0x7F {
		return fmt.Errorf("sensor address 0x%02X is not a 7-bit I2C address", c.Sensor.Address)
	}
	if c.Sampling.WindowSize < 1 {
		return fmt.Errorf("sampling window size must be at least 1, got %d", c.Sampling.WindowSize)
	}
	if c.Sampling.Period <= 0 {
		return fmt.Errorf("sampling period must be positive, got %s", c.Sampling.Period)
	}
	if c.Heater.Interval <= 0 {
		return fmt.Errorf("heater interval must be positive, got %s", c.Heater.Interval)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}

	return ValidateLogging(&c.Logging)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Driver == "" {
		c.Sensor.Driver = def.Sensor.Driver
	}
	if c.Sensor.Port == "" {
		c.Sensor.Port = def.Sensor.Port
	}
	if c.Sensor.BaudRate == 0 {
		c.Sensor.BaudRate = def.Sensor.BaudRate
	}
	if c.Sensor.Address == 0 {
		c.Sensor.Address = def.Sensor.Address
	}

	if c.Sampling.WindowSize == 0 {
		c.Sampling.WindowSize = def.Sampling.WindowSize
	}
	if c.Sampling.Period == 0 {
		c.Sampling.Period = def.Sampling.Period
	}

	if c.Heater.Interval == 0 {
		c.Heater.Interval = def.Heater.Interval
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = def.HTTP.Listen
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = def.HTTP.Timeout
	}

	if c.Time.NTPServer == "" {
		c.Time.NTPServer = def.Time.NTPServer
	}
	if c.Time.UpdateInterval == 0 {
		c.Time.UpdateInterval = def.Time.UpdateInterval
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.PublishTimeout == 0 {
		c.MQTT.PublishTimeout = def.MQTT.PublishTimeout
	}

	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	if c.Mock.TimeConstant == 0 {
		c.Mock.TimeConstant = def.Mock.TimeConstant
	}
}

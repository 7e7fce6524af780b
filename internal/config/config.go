// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Logging and storage
	LogDir              string
	FlushThresholdBytes int
	Verbosity           int // 0=warn, 1=info (periodic summary), 2=debug, 3=trace (every tick)

	// Loop timing
	AcquisitionIntervalMS int
	DisplayIntervalMS     int
	PeripheralIntervalMS  int
	HardwareTimeoutMS     int

	// Display state durations, in display ticks
	MenuTimeS     int
	ClockTimeoutS int
	InitTimeS     int

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange    byte
	IMUSampleRateHz int

	// I2C peripherals
	I2CBus        string // "" selects the first bus
	EnvI2CAddr    uint16
	LightI2CAddr  uint16
	GaugeI2CAddr  uint16
	EnableEnv     bool
	EnableLight   bool
	EnableGauge   bool
	EnableDisplay bool

	// Display
	DisplayWidth  int
	DisplayHeight int
	ClockHands    int // 2 or 3

	// Tap interrupt line, "" disables taps
	TapPin string

	// MCU link, "" disables the peripheral poller
	MCUSerialPort string
	MCUBaudRate   int

	// Network and radios
	NetInterface string
	WifiEnabled  bool
	BTEnabled    bool

	// Telemetry, "" disables the component
	MQTTBroker   string
	MQTTClientID string
	TopicStatus  string
	StatusAddr   string
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		LogDir:                "/home/root/pps_logs",
		FlushThresholdBytes:   128 << 20,
		Verbosity:             1,
		AcquisitionIntervalMS: 1000,
		DisplayIntervalMS:     1000,
		PeripheralIntervalMS:  100,
		HardwareTimeoutMS:     500,
		MenuTimeS:             5,
		ClockTimeoutS:         180,
		InitTimeS:             5,
		IMUSPIDevice:          "/dev/spidev0.0",
		IMUCSPin:              "GPIO8",
		IMUAccelRange:         0,
		IMUGyroRange:          0,
		IMUSampleRateHz:       25,
		EnvI2CAddr:            0x76,
		LightI2CAddr:          0x39,
		GaugeI2CAddr:          0x36,
		EnableEnv:             true,
		EnableLight:           true,
		EnableGauge:           true,
		EnableDisplay:         true,
		DisplayWidth:          128,
		DisplayHeight:         64,
		ClockHands:            2,
		TapPin:                "GPIO17",
		MCUBaudRate:           9600,
		NetInterface:          "wlan0",
		WifiEnabled:           true,
		BTEnabled:             false,
		MQTTClientID:          "platypus",
		TopicStatus:           "platypus/status",
	}
}

// Package-level singleton: InitGlobal sets it once, Get reads it under the
// read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines over the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intIn(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func i2cAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got 0x%X", key, addr)
	}
	return uint16(addr), nil
}

func boolean(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Logging and storage
	case "LOG_DIR":
		c.LogDir = value
	case "FLUSH_THRESHOLD_BYTES":
		c.FlushThresholdBytes, err = intIn(key, value, 1, 1<<30)
	case "VERBOSITY":
		c.Verbosity, err = intIn(key, value, 0, 3)

	// Loop timing
	case "ACQUISITION_INTERVAL_MS":
		c.AcquisitionIntervalMS, err = intIn(key, value, 1, 60000)
	case "DISPLAY_INTERVAL_MS":
		c.DisplayIntervalMS, err = intIn(key, value, 1, 60000)
	case "PERIPHERAL_INTERVAL_MS":
		c.PeripheralIntervalMS, err = intIn(key, value, 1, 60000)
	case "HARDWARE_TIMEOUT_MS":
		c.HardwareTimeoutMS, err = intIn(key, value, 1, 60000)

	// Display state durations
	case "MENU_TIME_S":
		c.MenuTimeS, err = intIn(key, value, 1, 3600)
	case "CLOCK_TIMEOUT_S":
		c.ClockTimeoutS, err = intIn(key, value, 1, 86400)
	case "INIT_TIME_S":
		c.InitTimeS, err = intIn(key, value, 1, 3600)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		var v int
		v, err = intIn(key, value, 0, 3)
		c.IMUAccelRange = byte(v)
	case "IMU_GYRO_RANGE":
		var v int
		v, err = intIn(key, value, 0, 3)
		c.IMUGyroRange = byte(v)
	case "IMU_SAMPLE_RATE_HZ":
		c.IMUSampleRateHz, err = intIn(key, value, 4, 1000)

	// I2C peripherals
	case "I2C_BUS":
		c.I2CBus = value
	case "ENV_I2C_ADDR":
		c.EnvI2CAddr, err = i2cAddr(key, value)
	case "LIGHT_I2C_ADDR":
		c.LightI2CAddr, err = i2cAddr(key, value)
	case "GAUGE_I2C_ADDR":
		c.GaugeI2CAddr, err = i2cAddr(key, value)
	case "ENABLE_ENV":
		c.EnableEnv, err = boolean(key, value)
	case "ENABLE_LIGHT":
		c.EnableLight, err = boolean(key, value)
	case "ENABLE_GAUGE":
		c.EnableGauge, err = boolean(key, value)
	case "ENABLE_DISPLAY":
		c.EnableDisplay, err = boolean(key, value)

	// Display
	case "DISPLAY_WIDTH":
		c.DisplayWidth, err = intIn(key, value, 8, 256)
	case "DISPLAY_HEIGHT":
		c.DisplayHeight, err = intIn(key, value, 8, 256)
	case "CLOCK_HANDS":
		c.ClockHands, err = intIn(key, value, 2, 3)

	// Tap line
	case "TAP_PIN":
		c.TapPin = value

	// MCU link
	case "MCU_SERIAL_PORT":
		c.MCUSerialPort = value
	case "MCU_BAUD_RATE":
		c.MCUBaudRate, err = intIn(key, value, 300, 4000000)

	// Network and radios
	case "NET_INTERFACE":
		c.NetInterface = value
	case "WIFI_ENABLED":
		c.WifiEnabled, err = boolean(key, value)
	case "BT_ENABLED":
		c.BTEnabled, err = boolean(key, value)

	// Telemetry
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "STATUS_ADDR":
		c.StatusAddr = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("LOG_DIR is required")
	}
	if c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required")
	}
	if c.IMUCSPin == "" {
		return fmt.Errorf("IMU_CS_PIN is required")
	}
	// The chip FIFO holds 512 bytes, 12 per sample.
	if perTick := c.IMUSampleRateHz * c.AcquisitionIntervalMS * 12 / 1000; perTick >= 512 {
		return fmt.Errorf("IMU_SAMPLE_RATE_HZ %d overflows the IMU FIFO within ACQUISITION_INTERVAL_MS %d (%d bytes per tick, limit 511)",
			c.IMUSampleRateHz, c.AcquisitionIntervalMS, perTick)
	}
	if c.MQTTBroker != "" && (c.MQTTClientID == "" || c.TopicStatus == "") {
		return fmt.Errorf("MQTT_CLIENT_ID and TOPIC_STATUS are required with MQTT_BROKER")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Only the first
// call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

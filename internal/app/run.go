// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/platypus/internal/config"
	"github.com/relabs-tech/platypus/internal/display"
	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/mcu"
	"github.com/relabs-tech/platypus/internal/netinfo"
	"github.com/relabs-tech/platypus/internal/radio"
	"github.com/relabs-tech/platypus/internal/sensors"
	"github.com/relabs-tech/platypus/internal/ui"
)

// SetupLogging maps the VERBOSITY setting to a log level.
func SetupLogging(verbosity int) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	switch {
	case verbosity <= 0:
		log.SetLevel(log.WarnLevel)
	case verbosity == 1:
		log.SetLevel(log.InfoLevel)
	case verbosity == 2:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Run opens the hardware described by the global config and runs the logger
// until ctx is done.
func Run(ctx context.Context) error {
	cfg := config.Get()
	SetupLogging(cfg.Verbosity)

	dev, closers, err := openDevices(cfg)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				appLog.Warnf("close: %v", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	rt, err := NewRuntime(dev, Options{
		LogDir:              cfg.LogDir,
		Threshold:           cfg.FlushThresholdBytes,
		AcquisitionInterval: ms(cfg.AcquisitionIntervalMS),
		DisplayInterval:     ms(cfg.DisplayIntervalMS),
		PeripheralInterval:  ms(cfg.PeripheralIntervalMS),
		HardwareTimeout:     ms(cfg.HardwareTimeoutMS),
		Timing: ui.Timing{
			MenuTime:     cfg.MenuTimeS,
			ClockTimeout: cfg.ClockTimeoutS,
			InitTime:     cfg.InitTimeS,
		},
		Scale:       imu.Scale{AccelRange: cfg.IMUAccelRange, GyroRange: cfg.IMUGyroRange},
		WifiEnabled: cfg.WifiEnabled,
		BTEnabled:   cfg.BTEnabled,
	})
	if err != nil {
		return err
	}

	var pub Publisher
	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			appLog.Warnf("telemetry disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			pub = client
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(gctx) })
	g.Go(func() error {
		NewReporter(rt.Status, pub, cfg.TopicStatus).Run(gctx, ms(cfg.DisplayIntervalMS))
		return nil
	})
	if cfg.StatusAddr != "" {
		g.Go(func() error {
			srv := NewStatusServer(rt, ms(cfg.DisplayIntervalMS))
			if err := srv.ListenAndServe(gctx, cfg.StatusAddr); err != nil {
				appLog.Errorf("status server: %v", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// openDevices opens every configured peripheral. Optional peripherals that
// fail are logged and left out; the IMU is required.
func openDevices(cfg *config.Config) (Devices, []io.Closer, error) {
	var (
		dev     Devices
		closers []io.Closer
	)

	bus, err := sensors.OpenI2C(cfg.I2CBus)
	if err != nil {
		appLog.Warnf("I2C unavailable, running without I2C peripherals: %v", err)
	} else {
		closers = append(closers, bus)
	}

	var envSensor *sensors.BME280
	if bus != nil && cfg.EnableEnv {
		if envSensor, err = sensors.NewBME280(bus, cfg.EnvI2CAddr); err != nil {
			appLog.Warnf("environment sensor disabled: %v", err)
		} else {
			dev.Env = envSensor
			closers = append(closers, envSensor)
		}
	}
	if bus != nil && cfg.EnableLight {
		if light, err := sensors.NewTSL2561(bus, cfg.LightI2CAddr); err != nil {
			appLog.Warnf("light sensor disabled: %v", err)
		} else {
			dev.Light = light
		}
	}
	if bus != nil && cfg.EnableGauge {
		dev.Battery = sensors.NewMAX17048(bus, cfg.GaugeI2CAddr)
	}

	imuOpts := sensors.MPU9250Opts{
		SPIDevice:  cfg.IMUSPIDevice,
		CSPin:      cfg.IMUCSPin,
		AccelRange: cfg.IMUAccelRange,
		GyroRange:  cfg.IMUGyroRange,
		RateHz:     cfg.IMUSampleRateHz,
		Calibrate:  true,
	}
	mpu, err := sensors.NewMPU9250(imuOpts)
	if err != nil {
		return dev, closers, err
	}
	dev.IMU = mpu
	closers = append(closers, mpu)

	var open display.Opener
	if bus != nil && cfg.EnableDisplay {
		open = display.SSD1306(bus, cfg.DisplayWidth, cfg.DisplayHeight)
	} else {
		appLog.Info("no display, rendering headless")
		open = display.NewMemory(cfg.DisplayWidth, cfg.DisplayHeight).Opener()
	}
	dev.Display = display.New(open, cfg.ClockHands)

	if cfg.TapPin != "" {
		if taps, err := sensors.NewTapLine(cfg.TapPin); err != nil {
			appLog.Warnf("tap input disabled: %v", err)
		} else {
			dev.Taps = taps
			closers = append(closers, taps)
		}
	}

	if cfg.MCUSerialPort != "" {
		link, err := mcu.Open(cfg.MCUSerialPort, uint(cfg.MCUBaudRate), ms(cfg.PeripheralIntervalMS))
		if err != nil {
			appLog.Warnf("MCU link disabled: %v", err)
		} else {
			dev.MCU = link
		}
	}

	radios := radio.NewRfkill(nil, 0)
	radios.Apply(cfg.WifiEnabled, cfg.BTEnabled)
	dev.Radios = radios
	dev.Address = netinfo.Lookup(cfg.NetInterface)

	return dev, closers, nil
}

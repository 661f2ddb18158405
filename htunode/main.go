package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/gohtu/pkg/clock"
	"github.com/itohio/gohtu/pkg/config"
	"github.com/itohio/gohtu/pkg/httpd"
	"github.com/itohio/gohtu/pkg/node"
	"github.com/itohio/gohtu/pkg/sensor"
	"github.com/itohio/gohtu/pkg/serialsensor"
	"github.com/itohio/gohtu/pkg/telemetry"
	"github.com/itohio/gohtu/pkg/timesource"
	"go.uber.org/zap"
)

const mqttConnectWait = 3 * time.Second

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated sensor instead of serial bridge")
		listFlag   = flag.Bool("list", false, "List serial ports and exit")
	)
	flag.Parse()

	if *listFlag {
		ports, err := serialsensor.Ports()
		if err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Printf("%s\t%s\n", p.Name, p.Description)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Sensor.Port = *portFlag
	}
	if *mockFlag {
		cfg.Sensor.Driver = config.DriverMock
	}

	logger, err := config.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, node.ErrSensorNotFound) {
			logger.Error("couldn't find sensor, halted", zap.Error(err))
			<-ctx.Done()
			return
		}
		logger.Fatal("node failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	clk := clock.NewSystem()

	driver := newDriver(cfg, clk, logger)
	defer driver.Close()

	if err := node.Startup(driver, cfg.Sensor.Address); err != nil {
		return err
	}
	logger.Info("sensor ready",
		zap.String("driver", cfg.Sensor.Driver),
		zap.String("address", fmt.Sprintf("0x%02X", cfg.Sensor.Address)),
	)

	transport, err := httpd.Listen(cfg.HTTP.Listen, logger)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Listen, err)
	}
	defer transport.Close()
	logger.Info("http listening", zap.Stringer("addr", transport.Addr()))

	ts := newTimeSource(&cfg.Time, logger)

	reporters := telemetry.Multi{telemetry.NewConsole(logger)}
	if cfg.MQTT.Enabled {
		m := telemetry.NewMQTT(&cfg.MQTT, logger)
		if err := m.Connect(mqttConnectWait); err != nil {
			logger.Warn("mqtt unavailable", zap.Error(err))
		}
		defer m.Close()
		reporters = append(reporters, m)
	}

	sched := node.NewScheduler(cfg, node.Deps{
		Clock:     clk,
		Driver:    driver,
		Time:      ts,
		Transport: transport,
		Reporter:  reporters,
	}, logger)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

func newTimeSource(cfg *config.TimeConfig, logger *zap.Logger) httpd.TimeSource {
	if !cfg.NTP {
		logger.Info("ntp disabled, using host clock", zap.Duration("utc_offset", cfg.UTCOffset))
		return timesource.Local{UTCOffset: cfg.UTCOffset}
	}

	ts := timesource.New(cfg, logger)
	if err := ts.Update(); err != nil {
		logger.Warn("initial ntp update failed", zap.Error(err))
	}
	return ts
}

func newDriver(cfg *config.Config, clk clock.Clock, logger *zap.Logger) sensor.Driver {
	if cfg.Sensor.Driver == config.DriverMock {
		return sensor.NewMock(&cfg.Mock, cfg.Sensor.Address, clk)
	}
	return serialsensor.New(cfg.Sensor.Port, cfg.Sensor.BaudRate, logger)
}

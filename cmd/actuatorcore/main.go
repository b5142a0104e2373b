package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"actuatorcore/internal/actuator"
	"actuatorcore/internal/alarm"
	"actuatorcore/internal/broker"
	"actuatorcore/internal/config"
	"actuatorcore/internal/console"
	"actuatorcore/internal/recorder"
	"actuatorcore/internal/servo"
	"actuatorcore/internal/uavobjects"
	"actuatorcore/internal/watchdog"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./actuatorcore.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := broker.New()
	b.SetActuatorSettings(cfg.Actuator.ToSettings())
	b.SetMixerSettings(cfg.Mixer.ToSettings())
	b.SetSystemSettings(cfg.SystemSettings())
	b.SetFlightStatus(uavobjects.FlightStatus{Armed: uavobjects.Disarmed})

	servoDriver, err := servo.Open()
	if err != nil {
		log.Fatalf("servo init failed: %v", err)
	}
	defer servoDriver.Close()

	wd, err := watchdog.Open(cfg.Watchdog.Device)
	if err != nil {
		log.Fatalf("watchdog init failed: %v", err)
	}
	defer wd.Close()

	var indicator alarm.Indicator
	if cfg.Alarm.GPIOLine != "" {
		indicator, err = alarm.OpenGPIOIndicator(cfg.Alarm.GPIOLine)
		if err != nil {
			log.Printf("alarm indicator unavailable, continuing without one: %v", err)
			indicator = nil
		}
	}
	alarmTracker := alarm.New(indicator)
	defer alarmTracker.Close()

	var rec actuator.Recorder
	if cfg.Recorder.Enable {
		r, err := recorder.Open(cfg.Recorder.Path)
		if err != nil {
			log.Fatalf("recorder init failed: %v", err)
		}
		defer r.Close()
		rec = r
	}

	if cfg.Console.Enable {
		c, err := console.Open(cfg.Console.Device, cfg.Console.BaudRate, b)
		if err != nil {
			log.Fatalf("console init failed: %v", err)
		}
		defer c.Close()
	}

	svc := actuator.New(actuator.Config{
		Broker:   b,
		Servo:    servoDriver,
		Watchdog: wd,
		Alarm:    alarmTracker,
		Recorder: rec,
	})

	if err := svc.Start(ctx); err != nil {
		log.Fatalf("actuator core start failed: %v", err)
	}
	defer svc.Close()

	log.Printf("actuatorcore starting, airframe=%v", cfg.AirframeType())

	<-ctx.Done()
	log.Printf("actuatorcore stopping")
}

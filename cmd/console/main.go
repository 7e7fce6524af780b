// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/app"
	"github.com/relabs-tech/platypus/internal/config"
)

func main() {
	configPath := flag.String("config", "./platypus_config.txt", "path to configuration file")
	flag.Parse()

	log.Info("starting platypus console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		log.Fatal("MQTT_BROKER is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsole(ctx, cfg.MQTTBroker, cfg.MQTTClientID+"-console", cfg.TopicStatus, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

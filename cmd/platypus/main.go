// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/platypus/internal/app"
	"github.com/relabs-tech/platypus/internal/config"
)

func main() {
	configPath := flag.String("config", "./platypus_config.txt", "path to configuration file")
	flag.Parse()

	log.Info("starting platypus sensor logger")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

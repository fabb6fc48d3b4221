package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/PratikDhanave/airtake-go/internal/config"
	"github.com/PratikDhanave/airtake-go/internal/sink"
)

// main boots the local ingestion sink: config → recorder → HTTP server.
func main() {
	// Load runtime config (AIRTAKE_SINK_ADDR, AIRTAKE_SINK_TOKENS, optional YAML file).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	// Events are kept in memory; a restart starts from empty.
	rec := sink.NewRecorder(0)

	// Build HTTP router (public health + token-guarded event APIs).
	router := sink.NewRouter(cfg.SinkTokens, rec, log.StandardLogger())

	log.WithFields(log.Fields{
		"addr":   cfg.SinkAddr,
		"tokens": len(cfg.SinkTokens),
	}).Info("sink started")
	log.Fatal(router.Run(cfg.SinkAddr))
}

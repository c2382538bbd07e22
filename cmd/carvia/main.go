// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

// Command carvia is the terminal front end of the Carvia client.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load .env (best effort) and environment configuration.
//  3. Open the persisted state file and the event bus.
//  4. Wire the REST client, session store, hubs, and services.
//  5. Dispatch the subcommand.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/carvia/carvia-go/internal/account"
	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/catalog"
	"github.com/carvia/carvia-go/internal/chat"
	"github.com/carvia/carvia-go/internal/dealers"
	"github.com/carvia/carvia-go/internal/geo"
	"github.com/carvia/carvia-go/internal/platform/config"
	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/platform/storage"
	"github.com/carvia/carvia-go/internal/realtime"
	"github.com/carvia/carvia-go/internal/session"
	"github.com/carvia/carvia-go/internal/social"
)

// app bundles the wired services the subcommands operate on.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	bus      *eventbus.Bus
	sessions *session.Store

	account *account.Service
	catalog *catalog.Service
	social  *social.Service
	chat    *chat.Service
	dealers *dealers.Service
	geo     *geo.Service

	chatHub   *realtime.ChatHub
	friendHub *realtime.FriendHub
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	// ── 3. State & Bus ────────────────────────────────────────────────────
	bus := eventbus.New()
	sessions := session.NewStore(storage.Open(cfg.StateDir, log), bus, log)

	// ── 4. Transport ──────────────────────────────────────────────────────
	client, err := api.New(cfg.APIBaseURL, sessions)
	must(log, err, "construct api client")

	chatHub := realtime.NewChatHub(cfg.APIBaseURL+cfg.ChatHubPath, sessions, bus, log)
	friendHub := realtime.NewFriendHub(cfg.APIBaseURL+cfg.FriendHubPath, sessions, bus, log)

	// ── 5. Services ───────────────────────────────────────────────────────
	application := &app{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		sessions:  sessions,
		account:   account.NewService(client, sessions, log),
		catalog:   catalog.NewService(client, log),
		social:    social.NewService(client, bus, log),
		chat:      chat.NewService(client, chatHub, bus, log),
		dealers:   dealers.NewService(client, log),
		geo:       geo.NewService(client),
		chatHub:   chatHub,
		friendHub: friendHub,
	}
	defer application.social.Close()
	defer application.chat.Close()

	// ── 6. Dispatch ───────────────────────────────────────────────────────
	if err := application.run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// must logs a structured fatal error and terminates the process if err is
// non-nil. Limited to startup wiring; after startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

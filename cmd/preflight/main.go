// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/statuscheck/internal/config"
	"github.com/hamed0406/statuscheck/internal/repo/backend"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		fail("reading env file: " + err.Error())
	}
	cfg := config.FromEnv()

	if strings.TrimSpace(os.Getenv("API_ADDR")) == "" {
		warn("API_ADDR is empty; default " + cfg.Addr + " will be used.")
	} else {
		ok("API_ADDR=" + cfg.Addr)
	}

	if cfg.APIPrefix == "" {
		warn("API_PREFIX is empty; routes are mounted at the root.")
	} else {
		ok("API_PREFIX=" + cfg.APIPrefix)
	}

	kind, err := backend.Detect(cfg.DatabaseURL)
	if err != nil {
		fail(err.Error())
	}
	if kind == backend.Memory {
		warn("DATABASE_URL empty — API will use the in-memory store; records are lost on restart.")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, _, err := backend.Open(ctx, cfg.DatabaseURL, zap.NewNop())
		if err != nil {
			cancel()
			fail("DATABASE_URL unreachable: " + err.Error())
		}
		pingErr := store.Ping(ctx)
		_ = store.Close()
		cancel()
		if pingErr != nil {
			fail("DATABASE_URL ping failed: " + pingErr.Error())
		}
		ok("DATABASE_URL reachable (" + string(kind) + ")")
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		warn("ALLOWED_ORIGINS unset or '*' — any origin may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.RateLimitRPM == 0 {
		warn("RATE_LIMIT_RPM is 0 — rate limiting disabled.")
	}

	ok("preflight passed")
}

// cmd/preflight/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/config"
	"github.com/hamed0406/wanuptime/internal/probe"
	"github.com/hamed0406/wanuptime/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load("preflight", args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		return 2
	}
	ok("configuration valid")
	if cfg.ConfigFile != "" {
		ok("loaded " + cfg.ConfigFile)
	}
	ok(fmt.Sprintf("target=%s period=%s timeout=%s", cfg.Target, cfg.Period, cfg.ProbeTimeout))

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fail("logs dir not creatable: " + err.Error())
	} else if f, err := os.CreateTemp(cfg.LogDir, ".preflight-*"); err != nil {
		fail("logs dir not writable: " + err.Error())
	} else {
		f.Close()
		os.Remove(f.Name())
		ok("logs dir writable: " + cfg.LogDir)
	}

	if pid, err := os.ReadFile(filepath.Join(cfg.LogDir, ".pid")); err == nil {
		warn("monitor pid file present (pid " + string(pid) + "); a monitor may already be running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		fail("store " + cfg.Store + ": " + err.Error())
	} else {
		if _, err := store.ReadRange(ctx, time.Now().Add(-time.Minute), time.Now()); err != nil {
			fail("store " + cfg.Store + " not readable: " + err.Error())
		} else {
			ok("store " + cfg.Store + " readable")
		}
		_ = closeStore()
	}

	prober, err := probe.New(ctx, cfg.Target, probe.Options{
		Packets:    cfg.PingPackets,
		Privileged: cfg.PingPrivileged,
		Attempts:   cfg.RetryAttempts,
		Backoff:    cfg.RetryBackoff,
		Log:        zap.NewNop(),
	})
	if err != nil {
		fail("probe: " + err.Error())
	} else {
		rec := prober.Probe(ctx, time.Now(), cfg.ProbeTimeout)
		if rec.Success {
			ok(fmt.Sprintf("target reachable (%s)", *rec.Latency))
		} else {
			warn("target not reachable right now: " + rec.FailureReason)
		}
	}

	if failed {
		return 1
	}
	ok("preflight passed")
	return 0
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/config"
	"github.com/hamed0406/wanuptime/internal/logging"
	"github.com/hamed0406/wanuptime/internal/monitor"
	"github.com/hamed0406/wanuptime/internal/probe"
	"github.com/hamed0406/wanuptime/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load("monitor", args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return 2
	}

	logger, err := logging.NewLogger(cfg.LogDir, logging.Options{File: "monitor.log", Stdout: cfg.LogStdout})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pidPath := filepath.Join(cfg.LogDir, ".pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		logger.Warn("pid_file_error", zap.String("path", pidPath), zap.Error(err))
	} else {
		defer os.Remove(pidPath)
	}

	store, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", zap.Error(err))
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store_close_error", zap.Error(err))
		}
	}()

	prober, err := probe.New(ctx, cfg.Target, probe.Options{
		Packets:    cfg.PingPackets,
		Privileged: cfg.PingPrivileged,
		Attempts:   cfg.RetryAttempts,
		Backoff:    cfg.RetryBackoff,
		Log:        logger,
	})
	if err != nil {
		logger.Error("probe_setup_failed", zap.String("target", cfg.Target), zap.Error(err))
		fmt.Fprintln(os.Stderr, "cannot probe target:", err)
		return 2
	}

	loop := monitor.NewLoop(logger, prober, store, cfg.Target, cfg.Period, cfg.ProbeTimeout)
	if err := loop.Run(ctx); err != nil {
		logger.Error("monitor_failed", zap.Error(err))
		return 1
	}
	return 0
}

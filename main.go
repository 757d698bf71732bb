package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/tuxx/shroudlock/internal/auth"
	"github.com/tuxx/shroudlock/internal/config"
	"github.com/tuxx/shroudlock/internal/hooks"
	"github.com/tuxx/shroudlock/internal/lock"
	"github.com/tuxx/shroudlock/internal/logger"
	"github.com/tuxx/shroudlock/internal/media"
	"github.com/tuxx/shroudlock/internal/pamauth"
	"github.com/tuxx/shroudlock/internal/render"
	"github.com/tuxx/shroudlock/internal/wayland"
)

type options struct {
	configPath string
	logLevel   string
	debug      bool
}

func main() {
	if err := buildCLI().ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Fatal("%v", err)
	}
}

func buildCLI() *ffcli.Command {
	var opts options

	rootFlagSet := flag.NewFlagSet("shroudlock", flag.ExitOnError)
	rootFlagSet.StringVar(&opts.configPath, "c", "", "Path to configuration file")
	rootFlagSet.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	rootFlagSet.StringVar(&opts.logLevel, "log", "error", "Log level: debug, info, warn, error, none")
	rootFlagSet.BoolVar(&opts.debug, "debug", false, "Enable debug logging with caller information")

	genConfigCmd := &ffcli.Command{
		Name:       "gen-config",
		ShortUsage: "shroudlock gen-config",
		ShortHelp:  "Write the default configuration file if none exists",
		Exec: func(_ context.Context, _ []string) error {
			path, err := config.GenerateDefaultConfigFile()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	return &ffcli.Command{
		Name:        "shroudlock",
		ShortUsage:  "shroudlock [flags] [<subcommand>]",
		ShortHelp:   "Lock a Wayland session through ext-session-lock-v1",
		FlagSet:     rootFlagSet,
		Options:     []ff.Option{ff.WithEnvVarPrefix("SHROUDLOCK")},
		Subcommands: []*ffcli.Command{genConfigCmd},
		Exec: func(ctx context.Context, _ []string) error {
			return execLock(ctx, opts)
		},
	}
}

func parseLogLevel(name string) (logger.LogLevel, error) {
	switch strings.ToLower(name) {
	case "debug":
		return logger.LevelDebug, nil
	case "info":
		return logger.LevelInfo, nil
	case "warn", "warning":
		return logger.LevelWarning, nil
	case "error", "":
		return logger.LevelError, nil
	case "none", "off":
		return logger.LevelNone, nil
	}
	return logger.LevelError, fmt.Errorf("unknown log level %q", name)
}

// loadConfiguration returns the defaults overlaid with the config file, if
// one is given or found. A broken file falls back to the defaults.
func loadConfiguration(path string) config.Configuration {
	cfg := config.DefaultConfig()

	if path == "" {
		found, err := config.DefaultPath()
		if err != nil {
			logger.Info("No config file found, using defaults")
			return cfg
		}
		path = found
	}

	logger.Info("Using config file: %s", path)
	if err := config.LoadConfig(path, &cfg); err != nil {
		logger.Error("Loading config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}

func execLock(ctx context.Context, opts options) error {
	level, err := parseLogLevel(opts.logLevel)
	if opts.debug {
		level = logger.LevelDebug
	}
	logger.InitLogger(level, opts.debug)
	if err != nil {
		logger.Warn("%v, using error level", err)
	}

	if err := hooks.CheckUserPermissions(); err != nil {
		return err
	}

	if lockPath, err := config.RuntimeFile("shroudlock.lock"); err != nil {
		logger.Warn("Could not resolve instance lock file: %v", err)
	} else {
		release, err := hooks.EnsureSingleInstance(lockPath)
		if err != nil {
			return err
		}
		defer release()
	}

	cfg := loadConfiguration(opts.configPath)
	desc := media.FromConfig(cfg)
	logger.Info("Lock screen media: %s", media.Kind(desc))

	cooldown := auth.NewCooldown(cfg.Lock.LockoutThreshold, time.Duration(cfg.Lock.LockoutSeconds)*time.Second)
	gate := auth.NewGate(pamauth.NewAuthenticator(), cfg.Lock.PamService, auth.CurrentUser(), cooldown)

	sessionHooks, closer := hooks.Build(cfg.Lock)
	defer closer.Close()

	client := wayland.NewClient()
	orchestrator := lock.New(lock.Config{
		Compositor:    client,
		Surfaces:      client,
		Renderer:      render.NewDispatcher(nil),
		Media:         desc,
		Gate:          gate,
		Hooks:         sessionHooks,
		ShowIndicator: cfg.Lock.ShowIndicator,
	})

	if err := client.Connect(orchestrator.Post); err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("Dispatch loop ended: %v", err)
		}
	}()

	err = orchestrator.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Session lock ended")
	return nil
}

// qdcore runs the trigger chains of a scripted quest against a
// deterministic logic clock, with a console and a chain debugger.
// Usage: qdcore [--version] [--plain] [--config <file>] [--script <file>] [--trace] [--dump] <game_directory>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/qdcore/bridge"
	"github.com/nathoo/qdcore/cli"
	"github.com/nathoo/qdcore/config"
	"github.com/nathoo/qdcore/engine"
	"github.com/nathoo/qdcore/engine/scheduler"
	"github.com/nathoo/qdcore/loader"
	"github.com/nathoo/qdcore/logger"
	"github.com/nathoo/qdcore/profiler"
	"github.com/nathoo/qdcore/storage"
	"github.com/nathoo/qdcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: qdcore [--version] [--plain] [--config <file>] [--script <file>] [--trace] [--dump] <game_directory>\n"

func main() {
	plain := false
	trace := false
	dump := false
	var gameDir, scriptFile, configFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("qdcore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--dump":
			dump = true
		case "--script", "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(1)
			}
			if args[i] == "--script" {
				scriptFile = args[i+1]
			} else {
				configFile = args[i+1]
			}
			i++
		default:
			if gameDir == "" {
				gameDir = args[i]
			}
		}
	}

	if gameDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	defs, err := loader.Load(gameDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game: %v\n", err)
		os.Exit(1)
	}
	if dump {
		if err := loader.Dump(os.Stdout, defs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(defs, cfg.RNGSeed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building game: %v\n", err)
		os.Exit(1)
	}
	eng.LogicPeriod = cfg.LogicPeriod().Seconds()
	eng.AutosaveSlot = cfg.AutosaveSlot

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening save storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	eng.Store = store

	prof := profiler.New(eng.Events, eng, cfg.Profiler.Buffer)
	prof.Start()
	defer prof.Stop()
	if cfg.Profiler.Addr != "" {
		go func() {
			if err := prof.ListenAndServe(ctx, cfg.Profiler.Addr); err != nil {
				logger.Log.WithFields(logrus.Fields{"addr": cfg.Profiler.Addr, "error": err}).Error("profiler server stopped")
			}
		}()
	}

	if cfg.MQTT.Broker != "" {
		b := bridge.New(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, eng)
		if err := b.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting input bridge: %v\n", err)
			os.Exit(1)
		}
		defer b.Stop()
	}

	logger.Log.WithFields(logrus.Fields{
		"game":    defs.Title,
		"scenes":  len(defs.Scenes),
		"chains":  len(defs.Chains),
		"backend": cfg.Storage.Backend,
	}).Info("game loaded")

	newCLI := func() *cli.CLI {
		c := cli.New(eng)
		c.Slots = store
		c.Profiler = prof
		c.Trace = trace
		return c
	}

	// Script mode: open file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := newCLI()
		c.In = f
		c.EchoInput = true
		c.Run(ctx)
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		newCLI().Run(ctx)
		return
	}

	sched := scheduler.New(cfg.LogicPeriod(), cfg.MaxTicksPerAdvance)
	if err := tui.Run(ctx, &newCLI().Console, sched); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads path, or starts from the defaults without one, and then
// applies the QDCORE_* environment.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

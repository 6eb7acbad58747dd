// Command enthrall is the master-side control-plane binary: it parses a
// config file (spec.md §6), resolves the topology, binds hotkeys, and
// runs the event loop until a QUIT action or signal stops it cleanly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/edceza/enthrall/internal/config"
	"github.com/edceza/enthrall/internal/edgedet"
	"github.com/edceza/enthrall/internal/focus"
	"github.com/edceza/enthrall/internal/loop"
	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/topo"
)

func main() {
	os.Exit(run())
}

func run() int {
	agentForward := false
	verbose := false

	flag.BoolVar(&agentForward, "A", false, "Allow the remote transport's SSH client to forward the agent")
	flag.BoolVar(&verbose, "v", false, "Verbose (debug-level) logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-A] [-v] CONFIGFILE\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	configPath := flag.Arg(0)

	logLevel := zerolog.InfoLevel
	if verbose {
		logLevel = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	doc, err := config.Load(configPath)
	if err != nil {
		log.Error().Err(err).Msg("startup: failed to load config")
		return 1
	}

	top, err := topo.Resolve(doc)
	if err != nil {
		log.Error().Err(err).Msg("startup: failed to resolve topology")
		return 1
	}
	for _, w := range top.Warnings {
		log.Warn().Msg(w)
	}

	driver := platform.NewStub()
	dialer := &remote.SSHDialer{AgentForward: agentForward}

	l := loop.New(top, driver, dialer, mouseSwitchConfig(doc.MouseSwitch), focusConfig(doc), log)
	if err := l.BindHotkeys(doc.Hotkeys); err != nil {
		log.Error().Err(err).Msg("startup: hotkey bind failed")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := l.Run(ctx); err != nil {
		log.Error().Err(err).Msg("event loop exited with error")
		return 1
	}
	return 0
}

func mouseSwitchConfig(e config.MouseSwitchEntry) edgedet.Config {
	n := e.N
	if n <= 0 {
		n = 1
	}
	return edgedet.Config{N: n, WindowMicros: e.WindowMicros}
}

func focusConfig(doc *config.Document) focus.Config {
	return focus.Config{
		ShowNullSwitch: showNullSwitch(doc.ShowNullSwitch),
		Hint:           hintConfig(doc.FocusHint),
	}
}

func showNullSwitch(s string) focus.ShowNullSwitch {
	switch s {
	case "always":
		return focus.ShowNullSwitchAlways
	case "hotkeyonly":
		return focus.ShowNullSwitchHotkeyOnly
	default:
		return focus.ShowNullSwitchNever
	}
}

func hintConfig(e config.FocusHintEntry) focus.HintConfig {
	hintType := focus.HintNone
	switch e.Type {
	case "dim_inactive":
		hintType = focus.HintDimInactive
	case "flash_active":
		hintType = focus.HintFlashActive
	}
	return focus.HintConfig{
		Type:           hintType,
		Brightness:     e.Brightness,
		DurationMicros: e.DurationMicros,
		FadeSteps:      e.FadeSteps,
	}
}

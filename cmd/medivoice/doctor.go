package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medivoice/medivoice/internal/bus"
	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/deps"
	"github.com/medivoice/medivoice/internal/recording"
	"github.com/medivoice/medivoice/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, configuration, credentials and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) error {
	problems := 0
	ok := func(msg string) { fmt.Println("  " + tui.RenderSuccess(msg)) }
	bad := func(msg string) {
		problems++
		fmt.Println("  " + tui.StyleError.Render("✗ ") + msg)
	}
	warn := func(msg string) { fmt.Println("  " + tui.StyleWarning.Render("! ") + msg) }

	fmt.Println(tui.StyleHighlight.Render("Tools"))
	for _, s := range deps.CheckAll() {
		label := fmt.Sprintf("%s (%s)", s.Name, s.Purpose)
		switch {
		case s.Installed && s.Version != "":
			ok(label + ": " + s.Version)
		case s.Installed:
			ok(label + ": " + s.Path)
		case s.Required:
			bad(label + ": not installed")
		default:
			warn(label + ": not installed")
		}
	}

	if err := recording.CheckPipeWire(ctx); err != nil {
		bad(err.Error())
	} else {
		ok("PipeWire is running")
	}

	fmt.Println(tui.StyleHighlight.Render("Configuration"))
	cfg, err := config.Load()
	if err != nil {
		bad(err.Error())
		return fmt.Errorf("%d problem(s) found", problems)
	}
	if err := cfg.Validate(); err != nil {
		bad(err.Error())
	} else {
		ok("config is valid, backend " + cfg.NewClient().BaseURL())
	}

	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cfg.Credentials().Token(tctx); err != nil {
		bad("no credentials (run `medivoice login`)")
	} else {
		ok("credentials found")
	}

	fmt.Println(tui.StyleHighlight.Render("Daemon"))
	if resp, err := bus.SendCommand(bus.CmdVersion, ""); err != nil {
		warn("not running (start it with `medivoice serve`)")
	} else {
		ok("running, " + strings.TrimSpace(resp))
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}

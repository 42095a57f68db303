package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/cli"
	"github.com/idilsaglam/tada/internal/client"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	configPath := flag.String("config", "", "config file (default ./tada.toml)")
	server := flag.String("server", "", "server base URL, overrides client.server_url")
	groupPending := flag.Bool("group", false, "group output by pending/done")
	theme := flag.String("theme", "", "one of: "+strings.Join(ui.Themes, ", "))
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.Fail(os.Stderr, "config: "+err.Error())
		os.Exit(2)
	}
	if *server != "" {
		cfg.Client.ServerURL = *server
	}
	if *theme != "" {
		cfg.UI.Theme = *theme
	}
	if !ui.SetTheme(cfg.UI.Theme) {
		ui.Fail(os.Stderr, fmt.Sprintf("unknown theme %q, using %s", cfg.UI.Theme, ui.DefaultTheme))
	}

	// The interactive list owns the terminal, so it logs nowhere.
	var logger *log.Logger
	if args[0] == "ui" {
		logger = logging.Discard()
	} else if logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		ui.Fail(os.Stderr, "logging: "+err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	api := client.NewAPI(cfg.Client.ServerURL, cfg.Client.Timeout, logger)
	code := cli.Run(ctx, args, cli.Options{
		Group: *groupPending,
		Todos: client.NewTodos(api, logger),
	})
	stop()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}

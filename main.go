// Command karaoke runs the karaoke queue: the playback loop plus either the
// HTTP command API (serve) or the operator console (console).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/config"
	"github.com/UTD-JLA/karaoke-bot/internal/console"
	"github.com/UTD-JLA/karaoke-bot/internal/errmsg"
	"github.com/UTD-JLA/karaoke-bot/internal/httpapi"
)

const usage = `usage: karaoke [serve|console]

  serve     run the playback loop and the HTTP command API (default)
  console   run the playback loop with the operator console
`

func main() {
	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	var run func(*config.Config) error
	switch mode {
	case "serve":
		run = runServe
	case "console":
		run = runConsole
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           httpapi.NewServer(c.svc, cfg.IsOperator, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- c.coord.Run(ctx) }()
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Msg("http shutdown")
	}
	logger.Info().Msg("shutting down")
	return err
}

func runConsole(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// Logs go to a file so they don't corrupt the TUI.
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	actor := app.Actor{Operator: true}
	if len(cfg.Operators) > 0 {
		actor.ID = cfg.Operators[0]
	}

	go func() {
		if err := c.coord.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("playback loop")
		}
	}()

	m := console.New(c.svc, actor, c.coord.Subscribe(), c.coord)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}

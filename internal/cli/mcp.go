package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"canvas/internal/app"
	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/logging"
	mcpserver "canvas/internal/mcp"
	"canvas/internal/relay"
	"canvas/internal/replica"
	"canvas/internal/storage"
)

func (c *CLI) mcpCommand() *cobra.Command {
	var relayURL, docID, clientID string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the board to an AI agent over MCP stdio",
		Long:  `Runs one canvas client and exposes it as MCP tools on stdin/stdout. With --relay the client joins a shared board; without it the board is local and persisted to the configured storage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.FromContext(ctx)
			cfg := c.cfg
			if docID == "" {
				docID = cfg.Relay.Document
			}
			if clientID == "" {
				clientID = "agent-" + domain.NewClientID()
			}

			loop := app.NewLoop(64)
			go loop.Run(ctx)

			var (
				a   *app.App
				err error
			)
			if relayURL != "" {
				a, err = c.attachRemote(ctx, loop, relayURL, docID, clientID, logger)
			} else {
				var cleanup func()
				a, cleanup, err = c.openLocal(ctx, loop, docID, clientID, logger)
				if cleanup != nil {
					defer cleanup()
				}
			}
			if err != nil {
				return err
			}

			if w := c.watchConfig(loop, a, logger); w != nil {
				defer w.Close()
			}

			srv := mcpserver.New(mcpserver.Deps{Loop: loop, App: a, Logger: logger})
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&relayURL, "relay", "", "relay websocket URL, e.g. ws://localhost:8080/ws")
	cmd.Flags().StringVar(&docID, "doc", "", "board id (defaults to relay.document)")
	cmd.Flags().StringVar(&clientID, "client", "", "client id (random when empty)")
	return cmd
}

func (c *CLI) attachRemote(ctx context.Context, loop *app.Loop, url, docID, clientID string, logger *log.Logger) (*app.App, error) {
	remote, err := relay.Attach(ctx, loop, relay.AttachOptions{
		URL:      url,
		Document: docID,
		ClientID: clientID,
		Viewport: [2]float64{c.cfg.ViewportWidth, c.cfg.ViewportHeight},
		App:      app.OptionsFromConfig(c.cfg),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	go func() {
		if err := <-remote.Done; err != nil {
			logger.Error("relay connection lost", "err", err)
		}
	}()
	return remote.App, nil
}

// openLocal builds a single-client session over a persisted document.
func (c *CLI) openLocal(ctx context.Context, loop *app.Loop, docID, clientID string, logger *log.Logger) (*app.App, func(), error) {
	store, err := storage.Open(ctx, c.cfg.Storage, c.cfg.DataDir, logger)
	if err != nil {
		return nil, nil, err
	}
	doc, err := replica.OpenDocument(ctx, docID, store, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	sess := app.NewSession(doc, app.OptionsFromConfig(c.cfg), logger,
		app.WithViewport(c.cfg.ViewportWidth, c.cfg.ViewportHeight))

	var (
		a       *app.App
		joinErr error
	)
	if err := loop.Do(ctx, func() { a, joinErr = sess.Join(ctx, clientID) }); err != nil {
		joinErr = err
	}
	cleanup := func() {
		if err := doc.Compact(context.Background()); err != nil {
			logger.Error("final snapshot failed", "err", err)
		}
		doc.Close()
		store.Close()
	}
	if joinErr != nil {
		cleanup()
		return nil, nil, fmt.Errorf("join board: %w", joinErr)
	}
	return a, cleanup, nil
}

// watchConfig applies live settings from the config file to a. It returns nil
// when there is no file to watch.
func (c *CLI) watchConfig(loop *app.Loop, a *app.App, logger *log.Logger) *config.Watcher {
	if c.cfgPath == "" {
		return nil
	}
	if _, err := os.Stat(c.cfgPath); err != nil {
		return nil
	}
	w, err := config.Watch(c.cfgPath, func(cfg config.Config) {
		loop.Post(func() { a.ApplyConfig(cfg) })
	}, logger)
	if err != nil {
		logger.Warn("config watch disabled", "err", err)
		return nil
	}
	return w
}

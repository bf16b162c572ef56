// Package cli wires the canvas commands: the relay server, the MCP bridge and
// the multi-client simulator.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"canvas/internal/config"
	"canvas/internal/logging"
)

var (
	version = "dev" // semantic version, set via ldflags
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI holds state shared by every command.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	cfgPath string
	verbose bool
	cfg     config.Config
}

// New creates a CLI writing results to out and logs to errOut.
func New(out, errOut io.Writer) *CLI {
	return &CLI{out: out, errOut: errOut, cfg: config.Default()}
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "canvas",
		Short:        "Collaborative shape canvas",
		Long:         `canvas keeps a board of shapes in sync between many clients: a websocket relay sequences edits, clients reconcile optimistically and share selections and drags as presence.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			level := logging.ParseLevel(cfg.LogLevel)
			if c.verbose {
				level = log.DebugLevel
			}
			logger := logging.New(c.errOut, level)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.SetVersionTemplate(fmt.Sprintf("canvas %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", config.DefaultPath(), "path to the TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.simCommand())

	return root
}

// Main is the process entry point used by package main.
func Main() int {
	return run(New(os.Stdout, os.Stderr))
}

func run(c *CLI) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130 // Standard shell convention for SIGINT
		}
		fmt.Fprintln(c.errOut, err)
		return 1
	}
	return 0
}

package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"canvas/internal/app"
	"canvas/internal/domain"
	"canvas/internal/logging"
	"canvas/internal/relay"
	"canvas/internal/replica"
)

// simOptions configures a simulation run.
type simOptions struct {
	Clients  int
	Ops      int
	Seed     uint64
	Relay    string
	Document string
	Settle   time.Duration
	Render   bool
}

// simReport summarises a run.
type simReport struct {
	Clients   int
	Ops       int
	Shapes    int
	Converged bool
	Divergent []string
	Elapsed   time.Duration
	// Scene is the first client's rendered scene, when requested.
	Scene string
}

type renderer interface {
	Render() string
}

func (c *CLI) simCommand() *cobra.Command {
	opts := simOptions{Clients: 3, Ops: 500, Settle: 5 * time.Second}

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive several clients with a random workload and check they converge",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.Document == "" {
				opts.Document = c.cfg.Relay.Document
			}
			if opts.Seed == 0 {
				opts.Seed = uint64(time.Now().UnixNano())
			}
			report, err := runSim(ctx, opts, c.cfg.ViewportWidth, c.cfg.ViewportHeight, app.OptionsFromConfig(c.cfg), logging.FromContext(ctx))
			if err != nil {
				return err
			}
			printReport(c.out, opts, report)
			if !report.Converged {
				return fmt.Errorf("clients diverged: %v", report.Divergent)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Clients, "clients", "n", opts.Clients, "number of simulated clients")
	cmd.Flags().IntVar(&opts.Ops, "ops", opts.Ops, "number of random operations")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (time based when 0)")
	cmd.Flags().StringVar(&opts.Relay, "relay", "", "relay websocket URL; in-process hub when empty")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "board id (defaults to relay.document)")
	cmd.Flags().DurationVar(&opts.Settle, "settle", opts.Settle, "how long to wait for relay clients to converge")
	cmd.Flags().BoolVar(&opts.Render, "render", false, "print the first client's scene after the run")
	return cmd
}

func printReport(w io.Writer, opts simOptions, r simReport) {
	status := "converged"
	if !r.Converged {
		status = "DIVERGED"
	}
	fmt.Fprintf(w, "%s: %d clients, %d ops, %d shapes, seed %d, %s\n",
		status, r.Clients, r.Ops, r.Shapes, opts.Seed, r.Elapsed.Round(time.Millisecond))
	for _, id := range r.Divergent {
		fmt.Fprintf(w, "  diverged: %s\n", id)
	}
	if r.Scene != "" {
		fmt.Fprint(w, r.Scene)
	}
}

func runSim(ctx context.Context, opts simOptions, width, height float64, appOpts app.Options, logger *log.Logger) (simReport, error) {
	if opts.Clients < 1 {
		return simReport{}, fmt.Errorf("need at least one client")
	}
	if opts.Relay != "" {
		return runRelaySim(ctx, opts, width, height, appOpts, logger)
	}

	start := time.Now()
	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	sess := app.NewSession(replica.NewDocument(opts.Document, logger), appOpts, logger,
		app.WithViewport(width, height), app.WithRand(r))
	sess.Shapes.AutoFlush = false

	apps := make([]*app.App, opts.Clients)
	for i := range apps {
		a, err := sess.Join(ctx, fmt.Sprintf("sim-%d", i))
		if err != nil {
			return simReport{}, err
		}
		apps[i] = a
	}

	for range opts.Ops {
		randomOp(apps[r.IntN(len(apps))], r)
		// Deliver in bursts so clients edit against stale views.
		if r.IntN(4) == 0 {
			sess.Flush()
		}
	}
	sess.Flush()

	views := make([][]domain.Shape, len(apps))
	for i, a := range apps {
		views[i] = a.Shapes()
	}
	report := compare(apps, views)
	report.Ops = opts.Ops
	report.Elapsed = time.Since(start)
	if rd, ok := apps[0].Scene().(renderer); ok && opts.Render {
		report.Scene = rd.Render()
	}
	return report, nil
}

func runRelaySim(ctx context.Context, opts simOptions, width, height float64, appOpts app.Options, logger *log.Logger) (simReport, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	apps := make([]*app.App, opts.Clients)
	loops := make([]*app.Loop, opts.Clients)
	for i := range apps {
		loop := app.NewLoop(256)
		go loop.Run(ctx)
		remote, err := relay.Attach(ctx, loop, relay.AttachOptions{
			URL:      opts.Relay,
			Document: opts.Document,
			Viewport: [2]float64{width, height},
			App:      appOpts,
			Logger:   logger,
		})
		if err != nil {
			return simReport{}, err
		}
		defer remote.Conn.Close()
		apps[i], loops[i] = remote.App, loop
	}

	for range opts.Ops {
		i := r.IntN(len(apps))
		if err := loops[i].Do(ctx, func() { randomOp(apps[i], r) }); err != nil {
			return simReport{}, err
		}
	}

	// Poll until every view matches or the settle window closes.
	var report simReport
	deadline := time.Now().Add(opts.Settle)
	for {
		views := make([][]domain.Shape, len(apps))
		for i := range apps {
			if err := loops[i].Do(ctx, func() { views[i] = apps[i].Shapes() }); err != nil {
				return simReport{}, err
			}
		}
		report = compare(apps, views)
		if report.Converged || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	report.Ops = opts.Ops
	report.Elapsed = time.Since(start)
	return report, nil
}

func compare(apps []*app.App, views [][]domain.Shape) simReport {
	report := simReport{Clients: len(apps), Shapes: len(views[0]), Converged: true}
	for i := 1; i < len(views); i++ {
		if !slices.Equal(views[0], views[i]) {
			report.Converged = false
			report.Divergent = append(report.Divergent, apps[i].ClientID())
		}
	}
	return report
}

// randomOp performs one user-level action picked from r.
func randomOp(a *app.App, r *rand.Rand) {
	pick := func() (string, bool) {
		shapes := a.Shapes()
		if len(shapes) == 0 {
			return "", false
		}
		return shapes[r.IntN(len(shapes))].ID, true
	}
	color := domain.Colors[r.IntN(len(domain.Colors))]

	switch r.IntN(12) {
	case 0, 1:
		a.CreateShape(domain.ShapeTypes[r.IntN(len(domain.ShapeTypes))], color)
	case 2:
		a.CreateMany(1 + r.IntN(5))
	case 3:
		if id, ok := pick(); ok {
			a.Select(id, r.IntN(2) == 0)
		}
	case 4:
		a.ChangeColorOfSelection(color)
	case 5:
		if r.IntN(3) == 0 {
			a.DeleteSelection()
		}
	case 6:
		a.BringToFrontOfSelection()
	case 7:
		a.SendToBackOfSelection()
	case 8:
		if r.IntN(2) == 0 {
			a.BringForwardOfSelection()
		} else {
			a.SendBackwardOfSelection()
		}
	case 9:
		if id, ok := pick(); ok {
			w, h := a.Scene().Viewport()
			a.MoveShape(id, r.Float64()*w, r.Float64()*h)
		}
	case 10:
		a.Undo()
	case 11:
		a.Redo()
	}
}

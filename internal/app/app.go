// Package app composes the canvas services into the facade the UI, the MCP
// server and the simulator drive.
package app

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/scene"
	"canvas/internal/service"
)

// Options are the facade's tunables.
type Options struct {
	MaxShapes  int
	ShowIndex  bool
	UseSignals bool
	UndoDepth  int
}

// OptionsFromConfig extracts the facade options from a loaded config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxShapes:  cfg.MaxShapes,
		ShowIndex:  cfg.ShowIndex,
		UseSignals: cfg.UseSignals,
		UndoDepth:  cfg.UndoDepth,
	}
}

// Deps are the collaborators one client's facade is built from.
type Deps struct {
	ClientID  string
	List      domain.ShapeList
	Selection domain.LatestState[[]string]
	Drag      domain.LatestState[domain.DragPackage]
	Audience  domain.Audience
	// Scene defaults to a headless canvas of Viewport size.
	Scene    domain.Scene
	Viewport [2]float64
	Options  Options
	Emitter  service.EventEmitter
	Logger   *log.Logger
	// Rand places new shapes; defaults to the global source.
	Rand *rand.Rand
}

// App is one client's canvas facade. Every method is synchronous and must be
// called from the goroutine that owns the App (see Loop).
type App struct {
	ctx      context.Context
	clientID string
	logger   *log.Logger
	scene    domain.Scene
	rand     *rand.Rand

	shapes    *service.ShapeService
	recon     *service.Reconciler
	selection *service.SelectionService
	drag      *service.DragService
	order     *service.OrderingService
	undo      *service.UndoService

	nextType  domain.ShapeType
	nextColor domain.Color

	unsubs []func()
}

// New wires the services for one client and renders the initial scene.
func New(ctx context.Context, deps Deps) (*App, error) {
	switch {
	case deps.List == nil:
		return nil, errors.New("app: shape list is required")
	case deps.Selection == nil || deps.Drag == nil:
		return nil, errors.New("app: presence channels are required")
	case deps.Audience == nil:
		return nil, errors.New("app: audience is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("client", deps.ClientID)

	sc := deps.Scene
	if sc == nil {
		w, h := deps.Viewport[0], deps.Viewport[1]
		if w <= 0 || h <= 0 {
			w, h = 600, 600
		}
		sc = scene.New(w, h, logger)
	}

	opts := deps.Options
	if opts.MaxShapes <= 0 {
		opts.MaxShapes = config.Default().MaxShapes
	}

	a := &App{
		ctx:       ctx,
		clientID:  deps.ClientID,
		logger:    logger,
		scene:     sc,
		rand:      deps.Rand,
		nextType:  domain.ShapeTypes[0],
		nextColor: domain.Colors[0],
	}
	a.shapes = service.NewShapeService(ctx, deps.List, opts.MaxShapes, logger)
	a.drag = service.NewDragService(ctx, a.shapes, deps.Drag, deps.Audience, sc, opts.UseSignals, deps.Emitter, logger)
	a.recon = service.NewReconciler(ctx, a.shapes, sc, a.drag, deps.Emitter, logger)
	a.selection = service.NewSelectionService(ctx, a.shapes, deps.Selection, deps.Audience, sc, deps.Emitter, logger)
	a.order = service.NewOrderingService(a.shapes, logger)
	a.undo = service.NewUndoService(ctx, a.shapes, opts.UndoDepth, deps.Emitter, logger)
	a.recon.SetShowIndex(opts.ShowIndex)

	a.unsubs = append(a.unsubs,
		a.shapes.OnChanged(func(domain.Commit) { a.refresh() }),
		deps.Audience.OnAttendeeDisconnected(func(string) { a.refresh() }),
		deps.Drag.OnRemoteUpdated(func(cv domain.ClientValue[domain.DragPackage]) {
			if !cv.Value.Active() {
				a.refresh()
			}
		}),
		sc.OnPointer(a.onPointer),
	)

	a.refresh()
	return a, nil
}

// Close detaches every subscription. The scene is left as it is.
func (a *App) Close() {
	for _, u := range a.unsubs {
		u()
	}
	a.unsubs = nil
	a.undo.Close()
	a.drag.Close()
	a.selection.Close()
	a.shapes.Close()
}

// ClientID returns this client's id.
func (a *App) ClientID() string { return a.clientID }

// Scene returns the scene the facade renders into.
func (a *App) Scene() domain.Scene { return a.scene }

// ConnectionState reports the health of the replicated list.
func (a *App) ConnectionState() domain.ConnectionState { return a.shapes.ConnectionState() }

// ApplyConfig applies the settings that may change while running.
func (a *App) ApplyConfig(cfg config.Config) {
	a.shapes.SetMaxShapes(cfg.MaxShapes)
	a.drag.SetUseSignals(cfg.UseSignals)
	if cfg.ShowIndex != a.recon.ShowIndex() {
		a.SetShowIndex(cfg.ShowIndex)
	}
	a.logger.Debug("config applied", "maxShapes", cfg.MaxShapes, "showIndex", cfg.ShowIndex, "useSignals", cfg.UseSignals)
}

func (a *App) refresh() {
	a.recon.Sync()
	a.selection.RefreshDecorations()
}

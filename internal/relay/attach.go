package relay

import (
	"context"

	"github.com/charmbracelet/log"

	"canvas/internal/app"
	"canvas/internal/domain"
	"canvas/internal/presence"
	"canvas/internal/replica"
)

// Remote is an App wired to a relay connection.
type Remote struct {
	App  *app.App
	Conn *Client
	// Done yields the read loop's result once the connection ends.
	Done <-chan error
}

// AttachOptions configures Attach.
type AttachOptions struct {
	URL      string
	Document string
	ClientID string
	Viewport [2]float64
	App      app.Options
	Logger   *log.Logger
}

// Attach dials the relay and builds an App on loop. Every later touch of the
// App must also go through loop.
func Attach(ctx context.Context, loop *app.Loop, opts AttachOptions) (*Remote, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	conn, welcome, err := Dial(ctx, opts.URL, opts.Document, opts.ClientID, logger)
	if err != nil {
		return nil, err
	}

	var (
		a      *app.App
		list   *replica.Client
		ws     *presence.Workspace
		appErr error
	)
	err = loop.Do(ctx, func() {
		list = replica.NewClient(welcome.ClientID, welcome.Snapshot, conn, logger)
		ws = presence.NewWorkspace(welcome.ClientID, conn, logger)
		a, appErr = app.New(ctx, app.Deps{
			ClientID:  welcome.ClientID,
			List:      list,
			Selection: presence.Latest(ws, domain.SelectionChannel, []string{}),
			Drag:      presence.Latest(ws, domain.DragChannel, domain.DragPackage{}),
			Audience:  ws,
			Viewport:  opts.Viewport,
			Options:   opts.App,
			Logger:    logger,
		})
		if appErr == nil {
			for _, id := range welcome.Attendees {
				ws.Join(id)
			}
		}
	})
	if err == nil {
		err = appErr
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Run(ctx, Sink{Replica: list, Presence: ws, Post: loop.Post})
	}()
	return &Remote{App: a, Conn: conn, Done: done}, nil
}

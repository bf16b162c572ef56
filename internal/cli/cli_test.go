package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"canvas/internal/app"
	"canvas/internal/relay"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	defer SetVersion("dev", "", "")

	if version != "1.0.0" {
		t.Errorf("version = %q, want %q", version, "1.0.0")
	}
	if commit != "abc123" {
		t.Errorf("commit = %q, want %q", commit, "abc123")
	}
	if date != "2024-01-01" {
		t.Errorf("date = %q, want %q", date, "2024-01-01")
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, &bytes.Buffer{}).RootCommand()
	for _, name := range []string{"serve", "mcp", "sim"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunSim_InProcessConverges(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42} {
		report, err := runSim(context.Background(), simOptions{Clients: 3, Ops: 300, Seed: seed, Document: "sim"},
			600, 600, app.Options{MaxShapes: 50, UseSignals: true, UndoDepth: 40}, nil)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if !report.Converged {
			t.Errorf("seed %d: clients diverged: %v", seed, report.Divergent)
		}
		if report.Shapes > 50 {
			t.Errorf("seed %d: %d shapes exceed the limit", seed, report.Shapes)
		}
	}
}

func TestRunSim_RejectsNoClients(t *testing.T) {
	if _, err := runSim(context.Background(), simOptions{}, 600, 600, app.Options{}, nil); err == nil {
		t.Error("expected an error for zero clients")
	}
}

func TestRunSim_OverRelay(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(nil, nil).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	report, err := runSim(context.Background(),
		simOptions{Clients: 2, Ops: 60, Seed: 3, Relay: url, Document: "sim", Settle: 5 * time.Second},
		600, 600, app.Options{MaxShapes: 50, UseSignals: true}, nil)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	if !report.Converged {
		t.Errorf("relay clients diverged: %v", report.Divergent)
	}
}

func TestSimCommand_UsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := "max_shapes = 20\nlog_level = \"error\"\n\n[storage]\ndriver = \"memory\"\n"
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := New(&out, &bytes.Buffer{})
	root := c.RootCommand()
	root.SetArgs([]string{"--config", path, "sim", "--clients", "2", "--ops", "100", "--seed", "9"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("sim: %v", err)
	}
	if c.cfg.MaxShapes != 20 {
		t.Errorf("config not loaded: max_shapes = %d", c.cfg.MaxShapes)
	}
	if !strings.HasPrefix(out.String(), "converged: 2 clients, 100 ops") {
		t.Errorf("unexpected report %q", out.String())
	}
}

func TestRunSim_RendersScene(t *testing.T) {
	report, err := runSim(context.Background(), simOptions{Clients: 2, Ops: 50, Seed: 5, Document: "sim", Render: true},
		600, 600, app.Options{MaxShapes: 20, UseSignals: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(report.Scene, "canvas 600x600 nodes=") {
		t.Errorf("unexpected scene dump %q", report.Scene)
	}
}

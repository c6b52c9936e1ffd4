package app

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	"alchemist/internal/config"
	"alchemist/internal/domain"
)

func TestOpenWithoutConfigUsesDefaults(t *testing.T) {
	ctx := context.Background()
	ws, err := Open(ctx, t.TempDir(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close(ctx)
	if ws.Config.EffectiveWeights().Get(domain.WeightClients) != domain.DefaultWeight {
		t.Fatalf("unexpected weights %+v", ws.Config.Weights)
	}
	if _, err := ws.Engine.Datasets(ctx); err != nil {
		t.Fatalf("datasets on migrated workspace: %v", err)
	}
}

func TestOpenReadsConfigFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(config.Path(dir), []byte("workspace:\n  name: lab\nschedule:\n  strict: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	ws, err := Open(ctx, dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close(ctx)
	if ws.Config.Workspace.Name != "lab" || !ws.Config.Schedule.Strict {
		t.Fatalf("config not loaded: %+v", ws.Config)
	}

	if err := os.WriteFile(config.Path(dir), []byte("weights:\n  clients: 42\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Open(ctx, dir, nil); err == nil {
		t.Fatalf("expected invalid config error")
	}
}

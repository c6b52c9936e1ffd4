package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alchemist/internal/domain"
)

func TestDefaultTemplateIsValid(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault("demo")))
	if err != nil {
		t.Fatalf("default template: %v", err)
	}
	if cfg.Workspace.Name != "demo" {
		t.Fatalf("name = %q", cfg.Workspace.Name)
	}
	if got := cfg.EffectiveWeights().Get(domain.WeightClients); got != 5 {
		t.Fatalf("clients weight = %d", got)
	}
	if perms := cfg.RolePermissions([]string{"viewer", "missing"}); len(perms) != 4 {
		t.Fatalf("viewer permissions = %v", perms)
	}
	if Default().Server.BasePath != "/v0" {
		t.Fatalf("default base path")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"weight out of range": "weights:\n  clients: 11\n",
		"unknown weight":      "weights:\n  urgency: 3\n",
		"bad rule":            "rules:\n  - type: coRun\n    tasks: [T1]\n",
		"unknown rule":        "rules:\n  - type: teleport\n",
		"base path":           "server:\n  base_path: v0\n",
		"unknown permission":  "rbac:\n  roles:\n    ops:\n      permissions: [launch.missiles]\n",
		"webhook url":         "webhooks:\n  - events: [schedule.ran]\n",
		"yaml":                "weights: [",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRulesDecode(t *testing.T) {
	cfg, err := FromYAML([]byte("rules:\n  - type: coRun\n    tasks: [T1, T2]\n  - type: phaseWindow\n    tasks: [T3]\n    allowedPhases: [1, 2]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rules := cfg.DecodedRules()
	if len(rules) != 2 || rules[1].Kind() != domain.KindPhaseWindow {
		t.Fatalf("rules = %+v", rules)
	}
	// Weights absent from the file fall back to defaults.
	if cfg.EffectiveWeights().Get(domain.WeightTasks) != domain.DefaultWeight {
		t.Fatalf("expected default weights")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "alc init") {
		t.Fatalf("expected missing config hint, got %v", err)
	}
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("load optional: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("schedule:\n  strict: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil || !cfg.Schedule.Strict {
		t.Fatalf("load: %+v %v", cfg, err)
	}
}

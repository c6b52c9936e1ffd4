package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"alchemist/internal/config"
	"alchemist/internal/db"
	"alchemist/internal/domain"
	"alchemist/internal/engine"
	"alchemist/internal/events"
	"alchemist/internal/migrate"
	"alchemist/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Log    *bytes.Buffer
}

func newTestEnv(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	var buf bytes.Buffer
	eng.Logger = log.New(&buf, "", 0)
	return testEnv{Engine: eng, Ctx: context.Background(), Log: &buf}
}

const (
	clientsCSV = "ClientID,PriorityLevel,RequestedTaskIDs\nA,5,T1\nB,2,T1\n"
	workersCSV = "WorkerID,Skills,AvailableSlots,MaxLoadPerPhase\nW1,x,\"[1,2]\",2\nW2,x,[1],5\n"
	tasksCSV   = "TaskID,Duration,MaxConcurrent,RequiredSkills\nT1,2,1,x\n"
)

func (env testEnv) importAll(t *testing.T, clients, workers, tasks string) {
	t.Helper()
	for kind, body := range map[domain.DatasetKind]string{domain.Clients: clients, domain.Workers: workers, domain.Tasks: tasks} {
		if _, err := env.Engine.ImportCSV(env.Ctx, kind, strings.NewReader(body), string(kind)+".csv", "tester"); err != nil {
			t.Fatalf("import %s: %v", kind, err)
		}
	}
}

func TestImportAndSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.importAll(t, clientsCSV, workersCSV, tasksCSV)

	info, rows, err := env.Engine.Dataset(env.Ctx, domain.Workers)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	if info.Rows != 2 || info.SourceName != "workers.csv" || rows[0]["AvailableSlots"] != "[1,2]" {
		t.Fatalf("unexpected dataset %+v %+v", info, rows)
	}
	matches, err := env.Engine.SearchDataset(env.Ctx, domain.Clients, "b")
	if err != nil || len(matches) != 1 || matches[0].Index != 1 {
		t.Fatalf("search: %+v %v", matches, err)
	}
	if _, err := env.Engine.ImportDataset(env.Ctx, engine.ImportOptions{Kind: "robots", Records: []domain.Record{}}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
	if _, _, err := env.Engine.Dataset(env.Ctx, "robots"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
	evs, err := env.Engine.EventLog(env.Ctx, repo.EventFilters{Type: events.DatasetImported})
	if err != nil || len(evs) != 3 {
		t.Fatalf("import events: %+v %v", evs, err)
	}
}

func TestValidateRecordsRun(t *testing.T) {
	env := newTestEnv(t, nil)
	env.importAll(t, "ClientID,PriorityLevel,RequestedTaskIDs\nA,9,T1;T2\n", workersCSV, tasksCSV)
	run, err := env.Engine.Validate(env.Ctx, engine.ValidateOptions{ActorID: "tester"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if run.Status != domain.RunInvalid || run.ErrorCount != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	stored, err := env.Engine.Run(env.Ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if len(stored.Errors["clients"]) != 2 || stored.Errors["clients"][0].Message != "PriorityLevel must be an integer between 1 and 5" {
		t.Fatalf("stored errors %+v", stored.Errors)
	}
	if !strings.Contains(env.Log.String(), "2 errors") {
		t.Fatalf("expected run summary in log, got %q", env.Log.String())
	}
}

func TestMissingDatasetsValidateAsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	run, err := env.Engine.Validate(env.Ctx, engine.ValidateOptions{})
	if err != nil || run.Status != domain.RunOK || run.ActorID != "local-user" {
		t.Fatalf("validate empty workspace: %+v %v", run, err)
	}
}

func TestScheduleRun(t *testing.T) {
	env := newTestEnv(t, nil)
	env.importAll(t, clientsCSV, workersCSV, tasksCSV)
	run, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{ActorID: "tester"})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	want := []domain.Assignment{
		{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W1"},
		{Phase: 2, TaskID: "T1", ClientID: "B", WorkerID: "W1"},
	}
	if run.Status != domain.RunOK || len(run.Assignments) != len(want) {
		t.Fatalf("unexpected run %+v", run)
	}
	for i := range want {
		if run.Assignments[i] != want[i] {
			t.Fatalf("assignment %d = %+v, want %+v", i, run.Assignments[i], want[i])
		}
	}
	if run.Weights.Get(domain.WeightClients) != domain.DefaultWeight {
		t.Fatalf("weights not recorded: %+v", run.Weights)
	}

	_, err = env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{ScheduleInput: engine.ScheduleInput{Weights: domain.Weights{"clients": 0}}})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid weights, got %v", err)
	}
}

func TestStrictScheduleBlocks(t *testing.T) {
	env := newTestEnv(t, nil)
	env.importAll(t, clientsCSV, "WorkerID,Skills,AvailableSlots,MaxLoadPerPhase\nW1,x,\"[1,2\",2\n", tasksCSV)

	lenient, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{})
	if err != nil || lenient.Status != domain.RunOK || lenient.AssignmentCount != 0 {
		t.Fatalf("lenient run: %+v %v", lenient, err)
	}
	blocked, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{Strict: true})
	if err != nil {
		t.Fatalf("strict run: %v", err)
	}
	if blocked.Status != domain.RunBlocked || blocked.ErrorCount != 1 || blocked.Assignments != nil {
		t.Fatalf("expected blocked run, got %+v", blocked)
	}
	evs, err := env.Engine.EventLog(env.Ctx, repo.EventFilters{Type: events.ScheduleBlocked})
	if err != nil || len(evs) != 1 || evs[0].EntityID != blocked.ID {
		t.Fatalf("blocked events: %+v %v", evs, err)
	}

	cfg := config.Default()
	cfg.Schedule.Strict = true
	env.Engine.Config = cfg
	viaConfig, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{})
	if err != nil || viaConfig.Status != domain.RunBlocked {
		t.Fatalf("config strict: %+v %v", viaConfig, err)
	}
}

func TestExportUsesLatestSuccessfulSchedule(t *testing.T) {
	cfg, err := config.FromYAML([]byte("weights:\n  tasks: 8\nrules:\n  - type: coRun\n    tasks: [T1, T2]\n"))
	if err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, cfg)
	env.importAll(t, clientsCSV, workersCSV, tasksCSV)

	doc, err := env.Engine.Export(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("export before schedule: %v", err)
	}
	if len(doc.Schedule) != 0 || doc.Schedule == nil || len(doc.Rules) != 1 || doc.Priorities.Get(domain.WeightTasks) != 8 {
		t.Fatalf("unexpected export %+v", doc)
	}
	if _, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{}); err != nil {
		t.Fatal(err)
	}
	doc, err = env.Engine.Export(env.Ctx, "tester")
	if err != nil || len(doc.Schedule) != 2 || len(doc.Clients) != 2 {
		t.Fatalf("export after schedule: %+v %v", doc, err)
	}
}

func TestRunsListing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.importAll(t, clientsCSV, workersCSV, tasksCSV)
	if _, err := env.Engine.Validate(env.Ctx, engine.ValidateOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Schedule(env.Ctx, engine.ScheduleOptions{}); err != nil {
		t.Fatal(err)
	}
	runs, err := env.Engine.Runs(env.Ctx, repo.RunFilters{})
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs: %+v %v", runs, err)
	}
	if _, err := env.Engine.Run(env.Ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	key, secret, err := env.Engine.CreateAPIKey(env.Ctx, "ci-bot", "ci", []string{"runs.read", "runs.create"}, "admin")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(secret, "alc_") || key.KeyHash != repo.HashAPIKey(secret) {
		t.Fatalf("unexpected key %+v", key)
	}
	if _, _, err := env.Engine.CreateAPIKey(env.Ctx, "ci-bot", "", []string{"root"}, "admin"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid permission, got %v", err)
	}
	keys, err := env.Engine.APIKeys(env.Ctx, "ci-bot")
	if err != nil || len(keys) != 1 || len(keys[0].Permissions) != 2 {
		t.Fatalf("list: %+v %v", keys, err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, key.ID, "admin"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, key.ID, "admin"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

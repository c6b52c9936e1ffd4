package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"alchemist/internal/db"
	"alchemist/internal/domain"
	"alchemist/internal/migrate"
	"alchemist/internal/repo"
)

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, context.Background()
}

func TestDatasetReplaceAndGet(t *testing.T) {
	r, ctx := newRepo(t)
	if _, _, err := r.GetDataset(ctx, domain.Workers); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	first := []domain.Record{{"WorkerID": "W1", "Skills": "x"}}
	if err := r.ReplaceDataset(ctx, nil, domain.Workers, "workers.csv", first, "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	second := []domain.Record{{"WorkerID": "W2"}, {"WorkerID": "W3"}}
	if err := r.ReplaceDataset(ctx, nil, domain.Workers, "", second, "2024-01-02T00:00:00Z"); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	info, rows, err := r.GetDataset(ctx, domain.Workers)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Rows != 2 || info.SourceName != "" || info.UpdatedAt != "2024-01-02T00:00:00Z" {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(rows) != 2 || rows[1]["WorkerID"] != "W3" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	list, err := r.ListDatasets(ctx)
	if err != nil || len(list) != 1 || list[0].Kind != domain.Workers {
		t.Fatalf("list datasets: %+v %v", list, err)
	}
}

func TestRunsRoundTripAndOrdering(t *testing.T) {
	r, ctx := newRepo(t)
	validate := domain.Run{
		ID: "run-1", Kind: domain.RunValidate, Status: domain.RunInvalid, ActorID: "tester",
		ErrorCount: 1,
		Errors: map[string][]domain.ValidationError{
			"clients": {{RowIndex: 0, ColumnKey: "ClientID", Message: "ClientID missing"}},
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	sched := domain.Run{
		ID: "run-2", Kind: domain.RunSchedule, Status: domain.RunOK, ActorID: "tester",
		AssignmentCount: 1,
		Assignments:     []domain.Assignment{{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W1"}},
		Weights:         domain.DefaultWeights(),
		CreatedAt:       "2024-01-01T00:00:05Z",
	}
	for _, run := range []domain.Run{validate, sched} {
		if err := r.InsertRun(ctx, nil, run); err != nil {
			t.Fatalf("insert %s: %v", run.ID, err)
		}
	}

	got, err := r.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Errors["clients"]) != 1 || got.Errors["clients"][0].Message != "ClientID missing" {
		t.Fatalf("errors not restored: %+v", got.Errors)
	}
	if _, err := r.GetRun(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	latest, err := r.LatestRun(ctx, domain.RunSchedule, domain.RunOK)
	if err != nil || latest.ID != "run-2" || len(latest.Assignments) != 1 || latest.Weights.Get(domain.WeightTasks) != 5 {
		t.Fatalf("latest schedule: %+v %v", latest, err)
	}

	runs, err := r.ListRuns(ctx, repo.RunFilters{})
	if err != nil || len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("list runs: %+v %v", runs, err)
	}
	if runs[0].Assignments != nil {
		t.Fatalf("summaries should omit assignments")
	}
	runs, err = r.ListRuns(ctx, repo.RunFilters{Kind: domain.RunValidate})
	if err != nil || len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("filtered runs: %+v %v", runs, err)
	}
}

func TestEventsPaging(t *testing.T) {
	r, ctx := newRepo(t)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, typ := range []string{"a", "b", "a"} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
			"2024-01-01T00:00:00Z", typ, "run", sql.NullString{}, "tester", `{"n":`+string(rune('0'+i))+`}`); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	latestID, err := r.LatestEventID(ctx)
	if err != nil || latestID != 3 {
		t.Fatalf("latest id = %d, %v", latestID, err)
	}
	evs, err := r.LatestEvents(ctx, repo.EventFilters{Type: "a"})
	if err != nil || len(evs) != 2 || evs[0].ID != 3 || evs[0].EntityID != "" {
		t.Fatalf("latest a: %+v %v", evs, err)
	}
	evs, err = r.LatestEvents(ctx, repo.EventFilters{Before: 3, Limit: 1})
	if err != nil || len(evs) != 1 || evs[0].ID != 2 {
		t.Fatalf("before 3: %+v %v", evs, err)
	}
	evs, err = r.EventsAfter(ctx, 10, 1)
	if err != nil || len(evs) != 2 || evs[0].ID != 2 || evs[1].Payload != `{"n":2}` {
		t.Fatalf("after 1: %+v %v", evs, err)
	}
}

func TestAPIKeys(t *testing.T) {
	r, ctx := newRepo(t)
	key := domain.APIKey{ID: "k1", ActorID: "ops", Name: "ci", KeyHash: repo.HashAPIKey(" secret "), Permissions: []string{"runs.read"}}
	if err := r.InsertAPIKey(ctx, nil, key); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey("secret"))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ActorID != "ops" || len(got.Permissions) != 1 || got.Permissions[0] != "runs.read" {
		t.Fatalf("unexpected key %+v", got)
	}
	if err := r.InsertAPIKey(ctx, nil, domain.APIKey{ID: "k2", ActorID: "ops"}); err == nil {
		t.Fatalf("expected missing hash error")
	}
	keys, err := r.ListAPIKeys(ctx, "ops")
	if err != nil || len(keys) != 1 {
		t.Fatalf("list: %+v %v", keys, err)
	}
	if err := r.DeleteAPIKey(ctx, nil, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.DeleteAPIKey(ctx, nil, "k1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

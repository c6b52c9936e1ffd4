package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"alchemist/internal/config"
	"alchemist/internal/dataset"
	"alchemist/internal/domain"
	"alchemist/internal/events"
	"alchemist/internal/repo"
	"alchemist/internal/schedule"
	"alchemist/internal/tracing"
	"alchemist/internal/validate"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Logger *log.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) eventWriter() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

func actorOrDefault(actorID string) string {
	if actorID == "" {
		return "local-user"
	}
	return actorID
}

// ImportOptions are parameters for replacing a dataset.
type ImportOptions struct {
	Kind       domain.DatasetKind
	Records    []domain.Record
	SourceName string
	ActorID    string
}

// ImportDataset replaces the stored rows of a dataset kind.
func (e Engine) ImportDataset(ctx context.Context, opts ImportOptions) (domain.DatasetInfo, error) {
	kind, err := domain.ParseDatasetKind(string(opts.Kind))
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	if opts.Records == nil {
		return domain.DatasetInfo{}, domain.InvalidArgument("records", "collection is required")
	}
	info := domain.DatasetInfo{
		Kind:       kind,
		Rows:       len(opts.Records),
		SourceName: opts.SourceName,
		UpdatedAt:  e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.ReplaceDataset(ctx, tx, kind, opts.SourceName, opts.Records, info.UpdatedAt); err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("store %s: %w", kind, err)
	}
	if err := e.eventWriter().Append(ctx, tx, events.DatasetImported, "dataset", string(kind), actorOrDefault(opts.ActorID), events.EventPayload{
		"rows":   info.Rows,
		"source": opts.SourceName,
	}); err != nil {
		return domain.DatasetInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DatasetInfo{}, err
	}
	return info, nil
}

// ImportCSV parses r as a headed CSV and replaces the dataset with its rows.
func (e Engine) ImportCSV(ctx context.Context, kind domain.DatasetKind, r io.Reader, sourceName, actorID string) (domain.DatasetInfo, error) {
	records, err := dataset.ReadCSV(r)
	if err != nil {
		return domain.DatasetInfo{}, domain.InvalidArgument("csv", err.Error())
	}
	return e.ImportDataset(ctx, ImportOptions{Kind: kind, Records: records, SourceName: sourceName, ActorID: actorID})
}

// Dataset returns a stored dataset.
func (e Engine) Dataset(ctx context.Context, kind domain.DatasetKind) (domain.DatasetInfo, []domain.Record, error) {
	if _, err := domain.ParseDatasetKind(string(kind)); err != nil {
		return domain.DatasetInfo{}, nil, err
	}
	return e.Repo.GetDataset(ctx, kind)
}

// Datasets lists metadata of imported datasets.
func (e Engine) Datasets(ctx context.Context) ([]domain.DatasetInfo, error) {
	return e.Repo.ListDatasets(ctx)
}

// SearchDataset filters a stored dataset by substring.
func (e Engine) SearchDataset(ctx context.Context, kind domain.DatasetKind, query string) ([]dataset.Match, error) {
	_, rows, err := e.Dataset(ctx, kind)
	if err != nil {
		return nil, err
	}
	return dataset.Search(rows, query), nil
}

// Collections are the three inputs of validation and allocation.
type Collections struct {
	Clients []domain.Record `json:"clients"`
	Workers []domain.Record `json:"workers"`
	Tasks   []domain.Record `json:"tasks"`
}

// loadCollections reads the stored datasets. A kind that was never imported is empty.
func (e Engine) loadCollections(ctx context.Context) (Collections, error) {
	var c Collections
	for _, kind := range domain.DatasetKinds {
		_, rows, err := e.Repo.GetDataset(ctx, kind)
		if errors.Is(err, repo.ErrNotFound) {
			rows = []domain.Record{}
		} else if err != nil {
			return Collections{}, fmt.Errorf("load %s: %w", kind, err)
		}
		switch kind {
		case domain.Clients:
			c.Clients = rows
		case domain.Workers:
			c.Workers = rows
		case domain.Tasks:
			c.Tasks = rows
		}
	}
	return c, nil
}

// ValidateCollections runs the validator on in-memory collections.
func (e Engine) ValidateCollections(ctx context.Context, c Collections) (validate.Report, error) {
	_, span := tracing.StartSpan(ctx, "validate", map[string]string{"component": "validator"})
	report, err := validate.All(c.Clients, c.Workers, c.Tasks)
	if err == nil {
		span.SetInt("errors", report.Count())
	}
	span.End(err)
	return report, err
}

// ScheduleInput carries optional per-call overrides for allocation.
type ScheduleInput struct {
	// Weights overlay the configured weights.
	Weights domain.Weights
	// Rules are appended to the configured rules.
	Rules domain.Rules
}

// ScheduleCollections runs the allocator on in-memory collections with the configured rules and
// weights plus the given overrides.
func (e Engine) ScheduleCollections(ctx context.Context, c Collections, in ScheduleInput) ([]domain.Assignment, domain.Weights, error) {
	weights := e.Config.EffectiveWeights().Merge(in.Weights)
	rules := append(e.Config.DecodedRules(), in.Rules...)
	_, span := tracing.StartSpan(ctx, "schedule", map[string]string{"component": "allocator"})
	span.SetInt("clients", len(c.Clients))
	span.SetInt("rules", len(rules))
	out, err := schedule.GenerateSchedule(c.Clients, c.Workers, c.Tasks, rules, weights)
	if err == nil {
		span.SetInt("assignments", len(out))
	}
	span.End(err)
	return out, weights, err
}

// ValidateOptions are parameters for a stored validation run.
type ValidateOptions struct {
	ActorID string
}

// Validate validates the stored datasets and records the run.
func (e Engine) Validate(ctx context.Context, opts ValidateOptions) (domain.Run, error) {
	c, err := e.loadCollections(ctx)
	if err != nil {
		return domain.Run{}, err
	}
	report, err := e.ValidateCollections(ctx, c)
	if err != nil {
		return domain.Run{}, err
	}
	run := e.newRun(domain.RunValidate, opts.ActorID)
	run.Status = domain.RunOK
	if report.Count() > 0 {
		run.Status = domain.RunInvalid
	}
	run.ErrorCount = report.Count()
	run.Errors = report.ByKind()
	if err := e.recordRun(ctx, run, events.ValidationRan); err != nil {
		return domain.Run{}, err
	}
	e.logger().Printf("validation run %s: %d errors", run.ID, run.ErrorCount)
	return run, nil
}

// ScheduleOptions are parameters for a stored allocation run.
type ScheduleOptions struct {
	ActorID string
	// Strict validates first and refuses to allocate when any error is found. The configured
	// schedule.strict also enables it.
	Strict bool
	ScheduleInput
}

// Schedule allocates the stored datasets and records the run. A strict run that finds
// validation errors is recorded with status blocked and carries the errors instead of
// assignments.
func (e Engine) Schedule(ctx context.Context, opts ScheduleOptions) (domain.Run, error) {
	c, err := e.loadCollections(ctx)
	if err != nil {
		return domain.Run{}, err
	}
	run := e.newRun(domain.RunSchedule, opts.ActorID)
	if opts.Strict || e.Config.Schedule.Strict {
		report, err := e.ValidateCollections(ctx, c)
		if err != nil {
			return domain.Run{}, err
		}
		if report.Count() > 0 {
			run.Status = domain.RunBlocked
			run.ErrorCount = report.Count()
			run.Errors = report.ByKind()
			if err := e.recordRun(ctx, run, events.ScheduleBlocked); err != nil {
				return domain.Run{}, err
			}
			e.logger().Printf("schedule run %s blocked by %d validation errors", run.ID, run.ErrorCount)
			return run, nil
		}
	}
	assignments, weights, err := e.ScheduleCollections(ctx, c, opts.ScheduleInput)
	if err != nil {
		return domain.Run{}, err
	}
	run.Status = domain.RunOK
	run.Assignments = assignments
	run.AssignmentCount = len(assignments)
	run.Weights = weights
	if err := e.recordRun(ctx, run, events.ScheduleRan); err != nil {
		return domain.Run{}, err
	}
	e.logger().Printf("schedule run %s: %d assignments", run.ID, run.AssignmentCount)
	return run, nil
}

func (e Engine) newRun(kind, actorID string) domain.Run {
	return domain.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		ActorID:   actorOrDefault(actorID),
		CreatedAt: e.timestamp(),
	}
}

func (e Engine) recordRun(ctx context.Context, run domain.Run, evtType string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRun(ctx, tx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := e.eventWriter().Append(ctx, tx, evtType, "run", run.ID, run.ActorID, events.EventPayload{
		"status":      run.Status,
		"errors":      run.ErrorCount,
		"assignments": run.AssignmentCount,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Run returns a stored run with detail.
func (e Engine) Run(ctx context.Context, id string) (domain.Run, error) {
	return e.Repo.GetRun(ctx, id)
}

// Runs lists run summaries newest first.
func (e Engine) Runs(ctx context.Context, f repo.RunFilters) ([]domain.Run, error) {
	return e.Repo.ListRuns(ctx, f)
}

// EventLog lists events newest first.
func (e Engine) EventLog(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}

// Export assembles the datasets, configured rules, effective weights and the assignments of the
// latest successful schedule run.
func (e Engine) Export(ctx context.Context, actorID string) (dataset.Export, error) {
	c, err := e.loadCollections(ctx)
	if err != nil {
		return dataset.Export{}, err
	}
	doc := dataset.Export{
		Clients:    c.Clients,
		Workers:    c.Workers,
		Tasks:      c.Tasks,
		Rules:      e.Config.DecodedRules().Specs(),
		Priorities: e.Config.EffectiveWeights(),
	}
	latest, err := e.Repo.LatestRun(ctx, domain.RunSchedule, domain.RunOK)
	switch {
	case err == nil:
		doc.Schedule = latest.Assignments
		if len(latest.Weights) > 0 {
			doc.Priorities = latest.Weights
		}
	case !errors.Is(err, repo.ErrNotFound):
		return dataset.Export{}, err
	}
	doc.Normalize()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return dataset.Export{}, err
	}
	defer tx.Rollback()
	if err := e.eventWriter().Append(ctx, tx, events.ExportGenerated, "export", "", actorOrDefault(actorID), events.EventPayload{
		"schedule": len(doc.Schedule),
	}); err != nil {
		return dataset.Export{}, err
	}
	if err := tx.Commit(); err != nil {
		return dataset.Export{}, err
	}
	return doc, nil
}

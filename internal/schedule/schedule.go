package schedule

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

// Scheduler runs allocations. The zero value is ready to use.
type Scheduler struct {
	// Hook overrides the rule hook compiled from the rules argument.
	Hook Hook
}

// GenerateSchedule allocates with the default Scheduler.
func GenerateSchedule(clients, workers, tasks []domain.Record, rules domain.Rules, weights domain.Weights) ([]domain.Assignment, error) {
	return Scheduler{}.Generate(clients, workers, tasks, rules, weights)
}

// Generate returns the committed assignments in commit order: client priority first, then the
// order of RequestedTaskIDs. Only absent collections and invalid weights are errors.
//
// Weights are validated and passed to the hook; placement itself only uses PriorityLevel.
func (s Scheduler) Generate(clients, workers, tasks []domain.Record, rules domain.Rules, weights domain.Weights) ([]domain.Assignment, error) {
	switch {
	case clients == nil:
		return nil, domain.InvalidArgument("clients", "collection is required")
	case workers == nil:
		return nil, domain.InvalidArgument("workers", "collection is required")
	case tasks == nil:
		return nil, domain.InvalidArgument("tasks", "collection is required")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	hook := s.Hook
	if hook == nil {
		hook = NewRuleHook(rules)
	}

	pool := make([]worker, 0, len(workers))
	for _, rec := range workers {
		pool = append(pool, newWorker(rec))
	}
	byID := make(map[string]int, len(tasks))
	for i, rec := range tasks {
		id := rec[domain.ColTaskID]
		if _, seen := byID[id]; id != "" && !seen {
			byID[id] = i
		}
	}
	compiled := make(map[int]task, len(byID))

	run := ledger{
		load:       map[workerPhase]float64{},
		concurrent: map[taskPhase]int{},
		out:        []domain.Assignment{},
	}
	for _, client := range byPriority(clients) {
		raw := client[domain.ColRequestedTaskIDs]
		if raw == "" {
			continue
		}
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			idx, ok := byID[id]
			if !ok {
				continue
			}
			t, ok := compiled[idx]
			if !ok {
				t = newTask(tasks[idx])
				compiled[idx] = t
			}
			run.place(client, t, pool, hook, weights)
		}
	}
	return run.out, nil
}

// byPriority returns clients sorted by PriorityLevel, highest first. Unparseable priority
// counts as 0 and ties keep input order.
func byPriority(clients []domain.Record) []domain.Record {
	sorted := slices.Clone(clients)
	slices.SortStableFunc(sorted, func(a, b domain.Record) int {
		return cmp.Compare(priority(b), priority(a))
	})
	return sorted
}

func priority(c domain.Record) float64 {
	v := phase.Number(c[domain.ColPriorityLevel])
	if math.IsNaN(v) {
		return 0
	}
	return v
}

type workerPhase struct {
	phase  int
	worker string
}

type taskPhase struct {
	task  string
	phase int
}

// ledger is the mutable state of one allocation call.
type ledger struct {
	load       map[workerPhase]float64
	concurrent map[taskPhase]int
	out        []domain.Assignment
}

func (l *ledger) place(client domain.Record, t task, pool []worker, hook Hook, weights domain.Weights) {
	if !t.usable {
		return
	}
	for _, w := range pool {
		if !w.usable || !w.covers(t.required) {
			continue
		}
		for _, p := range w.slots {
			if !t.prefers(p) {
				continue
			}
			lk := workerPhase{phase: p, worker: w.id}
			if l.load[lk]+t.duration > float64(w.maxLoad) {
				continue
			}
			ck := taskPhase{task: t.id, phase: p}
			if l.concurrent[ck] >= t.maxConcurrent {
				continue
			}
			pl := Placement{
				Phase:    p,
				ClientID: client[domain.ColClientID],
				TaskID:   t.id,
				WorkerID: w.id,
				Client:   client,
				Task:     t.rec,
				Worker:   w.rec,
				Weights:  weights,
			}
			if !hook.Admit(pl) {
				continue
			}
			l.load[lk] += t.duration
			l.concurrent[ck]++
			l.out = append(l.out, domain.Assignment{
				Phase:    p,
				TaskID:   t.id,
				ClientID: pl.ClientID,
				WorkerID: w.id,
			})
			return
		}
	}
}

type worker struct {
	id      string
	rec     domain.Record
	skills  map[string]struct{}
	slots   []int
	maxLoad int
	usable  bool
}

func newWorker(rec domain.Record) worker {
	w := worker{id: rec[domain.ColWorkerID], rec: rec, skills: skillSet(rec[domain.ColSkills])}
	if parsed, err := phase.Parse(rec[domain.ColAvailableSlots]); err == nil {
		seen := map[int]bool{}
		for _, p := range phase.Ints(parsed) {
			if !seen[p] {
				seen[p] = true
				w.slots = append(w.slots, p)
			}
		}
	}
	load := phase.Number(rec[domain.ColMaxLoadPerPhase])
	if phase.IsInteger(load) && load >= 1 {
		w.maxLoad = int(load)
	}
	w.usable = w.id != "" && w.maxLoad > 0 && len(w.slots) > 0
	return w
}

func (w worker) covers(required []string) bool {
	for _, s := range required {
		if _, ok := w.skills[s]; !ok {
			return false
		}
	}
	return true
}

type task struct {
	id            string
	rec           domain.Record
	required      []string
	anyPhase      bool
	preferred     map[int]struct{}
	duration      float64
	maxConcurrent int
	usable        bool
}

func newTask(rec domain.Record) task {
	t := task{id: rec[domain.ColTaskID], rec: rec, anyPhase: true}
	for s := range skillSet(rec[domain.ColRequiredSkills]) {
		t.required = append(t.required, s)
	}
	slices.Sort(t.required)

	// An unparseable preference reads as no preference. A parsed one with no valid phase
	// matches nothing.
	if parsed, err := phase.Parse(rec[domain.ColPreferredPhases]); err == nil && len(parsed) > 0 {
		t.anyPhase = false
		t.preferred = map[int]struct{}{}
		for _, p := range phase.Ints(parsed) {
			t.preferred[p] = struct{}{}
		}
	}

	t.duration = phase.Number(rec[domain.ColDuration])
	mc := phase.Number(rec[domain.ColMaxConcurrent])
	if phase.IsInteger(mc) && mc >= 1 {
		t.maxConcurrent = int(mc)
	}
	t.usable = t.id != "" &&
		len(t.required) > 0 &&
		!math.IsNaN(t.duration) && !math.IsInf(t.duration, 0) && t.duration >= 1 &&
		t.maxConcurrent > 0
	return t
}

func (t task) prefers(p int) bool {
	if t.anyPhase {
		return true
	}
	_, ok := t.preferred[p]
	return ok
}

func skillSet(raw string) map[string]struct{} {
	set := map[string]struct{}{}
	if raw == "" {
		return set
	}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

package schedule

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

func TestFirstFitByDeclarationOrder(t *testing.T) {
	clients := []domain.Record{
		{"ClientID": "B", "PriorityLevel": "2", "RequestedTaskIDs": "T1"},
		{"ClientID": "A", "PriorityLevel": "5", "RequestedTaskIDs": "T1"},
	}
	workers := []domain.Record{
		{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "[1,2]", "MaxLoadPerPhase": "2"},
		{"WorkerID": "W2", "Skills": "x", "AvailableSlots": "[1]", "MaxLoadPerPhase": "5"},
	}
	tasks := []domain.Record{
		{"TaskID": "T1", "Duration": "2", "MaxConcurrent": "1", "RequiredSkills": "x"},
	}

	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, domain.Assignment{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W1"}, got[0])
	// Phase 1 is exhausted for T1, so B cannot land there on either worker.
	for _, a := range got[1:] {
		assert.Equal(t, "B", a.ClientID)
		assert.NotEqual(t, 1, a.Phase)
	}
	assert.Equal(t, []domain.Assignment{
		{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W1"},
		{Phase: 2, TaskID: "T1", ClientID: "B", WorkerID: "W1"},
	}, got)
}

func TestSingleSlotRefusesSecondRequest(t *testing.T) {
	clients := []domain.Record{
		{"ClientID": "A", "PriorityLevel": "5", "RequestedTaskIDs": "T1"},
		{"ClientID": "B", "PriorityLevel": "1", "RequestedTaskIDs": "T1"},
	}
	workers := []domain.Record{
		{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "2"},
		{"WorkerID": "W2", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "5"},
	}
	tasks := []domain.Record{
		{"TaskID": "T1", "Duration": "2", "MaxConcurrent": "1", "RequiredSkills": "x"},
	}
	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W1"}}, got)
}

func TestMalformedSlotsExcludeWorkerSilently(t *testing.T) {
	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1"}}
	workers := []domain.Record{
		{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "[2,1", "MaxLoadPerPhase": "9"},
		{"WorkerID": "W2", "Skills": "x", "AvailableSlots": "3", "MaxLoadPerPhase": "9"},
	}
	tasks := []domain.Record{{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "3", "RequiredSkills": "x"}}

	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{Phase: 3, TaskID: "T1", ClientID: "A", WorkerID: "W2"}}, got)

	got, err = GenerateSchedule(clients, workers[:1], tasks, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPreferredPhasesAndSkills(t *testing.T) {
	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1, T2, T3, missing"}}
	workers := []domain.Record{
		{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "1-4", "MaxLoadPerPhase": "9"},
		{"WorkerID": "W2", "Skills": "x,y", "AvailableSlots": "[4,2]", "MaxLoadPerPhase": "9"},
	}
	tasks := []domain.Record{
		{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x", "PreferredPhases": "[3]"},
		{"TaskID": "T2", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "y , x"},
		{"TaskID": "T3", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x", "PreferredPhases": "[0]"},
	}
	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{
		{Phase: 3, TaskID: "T1", ClientID: "A", WorkerID: "W1"},
		{Phase: 4, TaskID: "T2", ClientID: "A", WorkerID: "W2"},
	}, got)
}

func TestUnparseablePreferenceMeansAnyPhase(t *testing.T) {
	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1"}}
	workers := []domain.Record{{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "2", "MaxLoadPerPhase": "1"}}
	tasks := []domain.Record{{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x", "PreferredPhases": "[1,"}}
	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{Phase: 2, TaskID: "T1", ClientID: "A", WorkerID: "W1"}}, got)
}

func TestStablePriorityOrder(t *testing.T) {
	clients := []domain.Record{
		{"ClientID": "low", "PriorityLevel": "oops", "RequestedTaskIDs": "T1"},
		{"ClientID": "tie1", "PriorityLevel": "3", "RequestedTaskIDs": "T1"},
		{"ClientID": "top", "PriorityLevel": "4", "RequestedTaskIDs": "T1"},
		{"ClientID": "tie2", "PriorityLevel": "3", "RequestedTaskIDs": "T1"},
	}
	workers := []domain.Record{{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "1,2,3,4", "MaxLoadPerPhase": "1"}}
	tasks := []domain.Record{{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x"}}
	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	var order []string
	for _, a := range got {
		order = append(order, fmt.Sprintf("%s@%d", a.ClientID, a.Phase))
	}
	assert.Equal(t, []string{"top@1", "tie1@2", "tie2@3", "low@4"}, order)
}

func TestUnusableRowsAreExcluded(t *testing.T) {
	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1,T2,T3,T4"}}
	workers := []domain.Record{
		{"WorkerID": "", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "9"},
		{"WorkerID": "W2", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "zero"},
		{"WorkerID": "W3", "Skills": "x", "AvailableSlots": "5", "MaxLoadPerPhase": "9"},
		{"WorkerID": "W4", "Skills": "x", "AvailableSlots": "1e17-1e17", "MaxLoadPerPhase": "9"},
	}
	tasks := []domain.Record{
		{"TaskID": "T1", "Duration": "abc", "MaxConcurrent": "1", "RequiredSkills": "x"},
		{"TaskID": "T2", "Duration": "1", "MaxConcurrent": "", "RequiredSkills": "x"},
		{"TaskID": "T3", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": ""},
		{"TaskID": "T4", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x"},
	}
	got, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{Phase: 5, TaskID: "T4", ClientID: "A", WorkerID: "W3"}}, got)
}

func TestContractViolations(t *testing.T) {
	empty := []domain.Record{}
	_, err := GenerateSchedule(nil, empty, empty, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = GenerateSchedule(empty, nil, empty, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = GenerateSchedule(empty, empty, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = GenerateSchedule(empty, empty, empty, nil, domain.Weights{"clients": 11})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = GenerateSchedule(empty, empty, empty, nil, domain.Weights{"bogus": 3})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	got, err := GenerateSchedule(empty, empty, empty, nil, domain.DefaultWeights())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHookCanReject(t *testing.T) {
	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1"}}
	workers := []domain.Record{
		{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "1,2", "MaxLoadPerPhase": "9"},
		{"WorkerID": "W2", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "9"},
	}
	tasks := []domain.Record{{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "2", "RequiredSkills": "x"}}
	var seen []Placement
	s := Scheduler{Hook: HookFunc(func(p Placement) bool {
		seen = append(seen, p)
		return p.WorkerID == "W2"
	})}
	got, err := s.Generate(clients, workers, tasks, nil, domain.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{Phase: 1, TaskID: "T1", ClientID: "A", WorkerID: "W2"}}, got)
	require.Len(t, seen, 3)
	assert.Equal(t, 5, seen[0].Weights.Get(domain.WeightClients))
}

func TestRuleHookIsAdvisory(t *testing.T) {
	rules := domain.Rules{
		domain.CoRunRule{Tasks: []string{"T1", "T2"}},
		domain.LoadLimitRule{WorkerGroup: "g", MaxSlotsPerPhase: 1},
		domain.PhaseWindowRule{Tasks: []string{"T1"}, AllowedPhases: []int{9}},
	}
	h := NewRuleHook(rules)
	assert.Equal(t, []domain.RuleKind{domain.KindCoRun, domain.KindLoadLimit, domain.KindPhaseWindow}, h.Advisory())
	assert.True(t, h.Admit(Placement{Phase: 1, TaskID: "T1"}))

	clients := []domain.Record{{"ClientID": "A", "PriorityLevel": "3", "RequestedTaskIDs": "T1"}}
	workers := []domain.Record{{"WorkerID": "W1", "Skills": "x", "AvailableSlots": "1", "MaxLoadPerPhase": "1"}}
	tasks := []domain.Record{{"TaskID": "T1", "Duration": "1", "MaxConcurrent": "1", "RequiredSkills": "x"}}
	withRules, err := GenerateSchedule(clients, workers, tasks, rules, nil)
	require.NoError(t, err)
	without, err := GenerateSchedule(clients, workers, tasks, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, without, withRules)
}

func TestInvariantsOnLargerInput(t *testing.T) {
	clients, workers, tasks := generatedFixture()
	first, err := GenerateSchedule(clients, workers, tasks, nil, domain.DefaultWeights())
	require.NoError(t, err)
	second, err := GenerateSchedule(clients, workers, tasks, nil, domain.DefaultWeights())
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b), "allocation must be deterministic")
	require.NotEmpty(t, first)

	workerByID := map[string]domain.Record{}
	for _, w := range workers {
		workerByID[w[domain.ColWorkerID]] = w
	}
	taskByID := map[string]domain.Record{}
	for _, tk := range tasks {
		taskByID[tk[domain.ColTaskID]] = tk
	}
	load := map[string]float64{}
	concurrent := map[string]int{}
	for _, as := range first {
		w, tk := workerByID[as.WorkerID], taskByID[as.TaskID]
		load[fmt.Sprintf("%d/%s", as.Phase, as.WorkerID)] += phase.Number(tk[domain.ColDuration])
		concurrent[fmt.Sprintf("%d/%s", as.Phase, as.TaskID)]++

		assert.LessOrEqual(t, load[fmt.Sprintf("%d/%s", as.Phase, as.WorkerID)], phase.Number(w[domain.ColMaxLoadPerPhase]))
		assert.LessOrEqual(t, float64(concurrent[fmt.Sprintf("%d/%s", as.Phase, as.TaskID)]), phase.Number(tk[domain.ColMaxConcurrent]))
		ws := skillSet(w[domain.ColSkills])
		for s := range skillSet(tk[domain.ColRequiredSkills]) {
			_, ok := ws[s]
			assert.True(t, ok, "worker %s lacks %s for %s", as.WorkerID, s, as.TaskID)
		}
		slots, err := phase.Parse(w[domain.ColAvailableSlots])
		require.NoError(t, err)
		assert.Contains(t, phase.Ints(slots), as.Phase)
	}
}

func generatedFixture() (clients, workers, tasks []domain.Record) {
	skills := []string{"a", "b", "c", "d"}
	for i := 0; i < 12; i++ {
		workers = append(workers, domain.Record{
			"WorkerID":        fmt.Sprintf("W%d", i),
			"Skills":          skills[i%4] + "," + skills[(i+1)%4],
			"AvailableSlots":  fmt.Sprintf("[%d,%d,%d]", i%5+1, (i+2)%5+1, (i+3)%5+1),
			"MaxLoadPerPhase": fmt.Sprintf("%d", i%3+1),
		})
	}
	for i := 0; i < 10; i++ {
		rec := domain.Record{
			"TaskID":         fmt.Sprintf("T%d", i),
			"Duration":       fmt.Sprintf("%d", i%2+1),
			"MaxConcurrent":  fmt.Sprintf("%d", i%3+1),
			"RequiredSkills": skills[i%4],
		}
		if i%3 == 0 {
			rec["PreferredPhases"] = "2-4"
		}
		tasks = append(tasks, rec)
	}
	for i := 0; i < 15; i++ {
		clients = append(clients, domain.Record{
			"ClientID":         fmt.Sprintf("C%d", i),
			"PriorityLevel":    fmt.Sprintf("%d", i%5+1),
			"RequestedTaskIDs": fmt.Sprintf("T%d,T%d,T%d", i%10, (i+3)%10, (i+7)%10),
		})
	}
	return clients, workers, tasks
}

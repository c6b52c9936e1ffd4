package domain

import "fmt"

// Record is one parsed row: column name to raw cell text. A missing column reads as "".
type Record map[string]string

// Column names the core reads. Any other column is carried through untouched.
const (
	ColClientID           = "ClientID"
	ColPriorityLevel      = "PriorityLevel"
	ColRequestedTaskIDs   = "RequestedTaskIDs"
	ColWorkerID           = "WorkerID"
	ColSkills             = "Skills"
	ColAvailableSlots     = "AvailableSlots"
	ColMaxLoadPerPhase    = "MaxLoadPerPhase"
	ColQualificationLevel = "QualificationLevel"
	ColTaskID             = "TaskID"
	ColDuration           = "Duration"
	ColMaxConcurrent      = "MaxConcurrent"
	ColRequiredSkills     = "RequiredSkills"
	ColPreferredPhases    = "PreferredPhases"
)

// DatasetKind names one of the three input collections.
type DatasetKind string

const (
	Clients DatasetKind = "clients"
	Workers DatasetKind = "workers"
	Tasks   DatasetKind = "tasks"
)

// DatasetKinds lists the collections in import order.
var DatasetKinds = []DatasetKind{Clients, Workers, Tasks}

// ParseDatasetKind maps user input onto a DatasetKind.
func ParseDatasetKind(s string) (DatasetKind, error) {
	for _, k := range DatasetKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", InvalidArgument("kind", fmt.Sprintf("unknown dataset kind %q (want clients, workers or tasks)", s))
}

// Assignment is one committed (phase, task, client, worker) tuple.
type Assignment struct {
	Phase    int    `json:"phase"`
	TaskID   string `json:"taskId"`
	ClientID string `json:"clientId"`
	WorkerID string `json:"workerId"`
}

// ValidationError is a field-level data-quality finding. RowIndex is zero-based into the
// collection that was validated and is only meaningful for that exact input.
type ValidationError struct {
	RowIndex  int    `json:"rowIndex"`
	ColumnKey string `json:"columnKey"`
	Message   string `json:"message"`
}

const (
	RunValidate = "validate"
	RunSchedule = "schedule"
)

const (
	RunOK      = "ok"
	RunInvalid = "invalid"
	RunBlocked = "blocked"
)

// Run is a stored validation or allocation result.
type Run struct {
	ID              string                       `json:"id"`
	Kind            string                       `json:"kind" enum:"validate,schedule"`
	Status          string                       `json:"status" enum:"ok,invalid,blocked"`
	ActorID         string                       `json:"actor_id"`
	ErrorCount      int                          `json:"error_count"`
	AssignmentCount int                          `json:"assignment_count"`
	Errors          map[string][]ValidationError `json:"errors,omitempty"`
	Assignments     []Assignment                 `json:"assignments,omitempty"`
	Weights         Weights                      `json:"weights,omitempty"`
	CreatedAt       string                       `json:"created_at" format:"date-time"`
}

type DatasetInfo struct {
	Kind       DatasetKind `json:"kind"`
	Rows       int         `json:"rows"`
	SourceName string      `json:"source_name,omitempty"`
	UpdatedAt  string      `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey is a stored credential. Only the SHA-256 hash of the key is persisted.
type APIKey struct {
	ID          string   `json:"id"`
	ActorID     string   `json:"actor_id"`
	Name        string   `json:"name,omitempty"`
	KeyHash     string   `json:"-"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

// Package validate checks the clients, workers and tasks collections for field-level and
// cross-collection problems. Every function is pure: the same input always yields the same
// error list, ordered by row, then by check, then by cross-reference entry.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

// Report holds one error list per collection.
type Report struct {
	Clients []domain.ValidationError `json:"clients"`
	Workers []domain.ValidationError `json:"workers"`
	Tasks   []domain.ValidationError `json:"tasks"`
}

// Count returns the total number of errors.
func (r Report) Count() int {
	return len(r.Clients) + len(r.Workers) + len(r.Tasks)
}

// ByKind returns the lists keyed by dataset kind.
func (r Report) ByKind() map[string][]domain.ValidationError {
	return map[string][]domain.ValidationError{
		string(domain.Clients): r.Clients,
		string(domain.Workers): r.Workers,
		string(domain.Tasks):   r.Tasks,
	}
}

// All validates the three collections against each other.
func All(clients, workers, tasks []domain.Record) (Report, error) {
	c, err := Clients(clients, tasks)
	if err != nil {
		return Report{}, err
	}
	w, err := Workers(workers, tasks)
	if err != nil {
		return Report{}, err
	}
	t, err := Tasks(tasks, workers)
	if err != nil {
		return Report{}, err
	}
	return Report{Clients: c, Workers: w, Tasks: t}, nil
}

type collector struct {
	errs []domain.ValidationError
}

func (c *collector) add(row int, col, msg string) {
	c.errs = append(c.errs, domain.ValidationError{RowIndex: row, ColumnKey: col, Message: msg})
}

func (c *collector) result() []domain.ValidationError {
	if c.errs == nil {
		return []domain.ValidationError{}
	}
	return c.errs
}

func requireCollection(name string, rows []domain.Record) error {
	if rows == nil {
		return domain.InvalidArgument(name, "collection is required")
	}
	return nil
}

// splitTrim splits a comma list and trims every entry. Empty entries are kept.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func positiveInt(s string) bool {
	v := phase.Number(s)
	return phase.IsInteger(v) && v >= 1
}

// Rule messages.
func missing(col string) string { return col + " missing" }

func unknownTask(id string) string { return fmt.Sprintf("Unknown TaskID '%s' requested", id) }

func unknownSkill(skill string) string { return fmt.Sprintf("Skill '%s' not found in any worker", skill) }

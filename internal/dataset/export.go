package dataset

import (
	"encoding/json"
	"io"

	"alchemist/internal/domain"
)

// Export is the combined document of datasets, rules, weights and the latest schedule.
type Export struct {
	Clients    []domain.Record     `json:"clients"`
	Workers    []domain.Record     `json:"workers"`
	Tasks      []domain.Record     `json:"tasks"`
	Rules      []domain.RuleSpec   `json:"rules"`
	Priorities domain.Weights      `json:"priorities"`
	Schedule   []domain.Assignment `json:"schedule"`
}

// Normalize replaces nil collections with empty ones so the document never carries nulls.
func (e *Export) Normalize() {
	if e.Clients == nil {
		e.Clients = []domain.Record{}
	}
	if e.Workers == nil {
		e.Workers = []domain.Record{}
	}
	if e.Tasks == nil {
		e.Tasks = []domain.Record{}
	}
	if e.Rules == nil {
		e.Rules = []domain.RuleSpec{}
	}
	if e.Priorities == nil {
		e.Priorities = domain.Weights{}
	}
	if e.Schedule == nil {
		e.Schedule = []domain.Assignment{}
	}
}

// Write encodes e as indented JSON.
func (e Export) Write(w io.Writer) error {
	e.Normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

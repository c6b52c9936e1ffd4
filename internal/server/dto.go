package server

import (
	"encoding/json"
	"sort"

	"alchemist/internal/config"
	"alchemist/internal/dataset"
	"alchemist/internal/domain"
	"alchemist/internal/validate"
)

// Request payloads

type PutDatasetRequest struct {
	Records    []domain.Record `json:"records" doc:"Rows keyed by column name"`
	SourceName string          `json:"source_name,omitempty"`
}

type ScheduleRequest struct {
	Strict  bool              `json:"strict,omitempty" doc:"Validate first and refuse to allocate on any error"`
	Weights domain.Weights    `json:"weights,omitempty" doc:"Overlay on the configured weights"`
	Rules   []domain.RuleSpec `json:"rules,omitempty" doc:"Appended to the configured rules"`
}

type InlineValidateRequest struct {
	Clients []domain.Record `json:"clients"`
	Workers []domain.Record `json:"workers"`
	Tasks   []domain.Record `json:"tasks"`
}

type InlineScheduleRequest struct {
	Clients []domain.Record   `json:"clients"`
	Workers []domain.Record   `json:"workers"`
	Tasks   []domain.Record   `json:"tasks"`
	Weights domain.Weights    `json:"weights,omitempty"`
	Rules   []domain.RuleSpec `json:"rules,omitempty"`
}

type CreateAPIKeyRequest struct {
	ActorID     string   `json:"actor_id"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
}

// Responses

type DatasetResponse struct {
	Info    domain.DatasetInfo `json:"info"`
	Records []domain.Record    `json:"records"`
}

type SearchResponse struct {
	Info    domain.DatasetInfo `json:"info"`
	Query   string             `json:"query"`
	Matches []dataset.Match    `json:"matches"`
}

type ValidationReportResponse struct {
	ErrorCount int `json:"error_count"`
	validate.Report
}

type InlineScheduleResponse struct {
	Assignments []domain.Assignment `json:"assignments"`
	Weights     domain.Weights      `json:"weights"`
}

type CreateAPIKeyResponse struct {
	Key    domain.APIKey `json:"key"`
	Secret string        `json:"secret" doc:"Shown once; only its hash is stored"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type ConfigResponse struct {
	Weights  domain.Weights    `json:"weights"`
	Rules    []domain.RuleSpec `json:"rules"`
	Strict   bool              `json:"strict"`
	Roles    []string          `json:"roles"`
	Webhooks int               `json:"webhooks"`
}

// Conversion helpers

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func configResponse(cfg *config.Config) ConfigResponse {
	res := ConfigResponse{
		Weights:  cfg.EffectiveWeights(),
		Rules:    nonNilSlice(cfg.DecodedRules().Specs()),
		Strict:   cfg.Schedule.Strict,
		Roles:    []string{},
		Webhooks: len(cfg.Webhooks),
	}
	for role := range cfg.RBAC.Roles {
		res.Roles = append(res.Roles, role)
	}
	sort.Strings(res.Roles)
	return res
}

func reportResponse(r validate.Report) ValidationReportResponse {
	return ValidationReportResponse{ErrorCount: r.Count(), Report: r}
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

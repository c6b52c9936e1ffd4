package validate

import (
	"fmt"
	"math"

	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

// Workers checks identity, skills, slot lists, per-phase capacity and the optional
// QualificationLevel. tasks is accepted for symmetry with the other validators and must not be nil.
func Workers(workers, tasks []domain.Record) ([]domain.ValidationError, error) {
	if err := requireCollection("workers", workers); err != nil {
		return nil, err
	}
	if err := requireCollection("tasks", tasks); err != nil {
		return nil, err
	}

	var c collector
	for idx, w := range workers {
		if w[domain.ColWorkerID] == "" {
			c.add(idx, domain.ColWorkerID, missing(domain.ColWorkerID))
		}
		if w[domain.ColSkills] == "" {
			c.add(idx, domain.ColSkills, missing(domain.ColSkills))
		}
		checkSlots(&c, idx, w[domain.ColAvailableSlots])

		if raw := w[domain.ColMaxLoadPerPhase]; raw == "" {
			c.add(idx, domain.ColMaxLoadPerPhase, missing(domain.ColMaxLoadPerPhase))
		} else if !positiveInt(raw) {
			c.add(idx, domain.ColMaxLoadPerPhase, "MaxLoadPerPhase must be a positive integer")
		}

		if raw := w[domain.ColQualificationLevel]; raw != "" && !isNumber(raw) {
			c.add(idx, domain.ColQualificationLevel, "QualificationLevel should be a number")
		}
	}
	return c.result(), nil
}

func checkSlots(c *collector, idx int, raw string) {
	if raw == "" {
		c.add(idx, domain.ColAvailableSlots, missing(domain.ColAvailableSlots))
		return
	}
	slots, err := phase.ParseList(raw)
	if err != nil {
		c.add(idx, domain.ColAvailableSlots, "Malformed AvailableSlots (should be comma-separated or JSON array of numbers)")
		return
	}
	for _, s := range slots {
		if !phase.Valid(s) {
			c.add(idx, domain.ColAvailableSlots, fmt.Sprintf("Invalid phase slot '%s' (should be positive integer)", formatNumber(s)))
		}
	}
}

func isNumber(s string) bool {
	return !math.IsNaN(phase.Number(s))
}

package validate

import (
	"math"

	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

// Tasks checks identity, Duration, MaxConcurrent, that every RequiredSkills entry is offered by
// at least one worker, and that PreferredPhases resolves to valid phases.
func Tasks(tasks, workers []domain.Record) ([]domain.ValidationError, error) {
	if err := requireCollection("tasks", tasks); err != nil {
		return nil, err
	}
	if err := requireCollection("workers", workers); err != nil {
		return nil, err
	}
	offered := map[string]struct{}{}
	for _, w := range workers {
		if raw := w[domain.ColSkills]; raw != "" {
			for _, s := range splitTrim(raw) {
				if s != "" {
					offered[s] = struct{}{}
				}
			}
		}
	}

	var c collector
	for idx, t := range tasks {
		if t[domain.ColTaskID] == "" {
			c.add(idx, domain.ColTaskID, missing(domain.ColTaskID))
		}

		if raw := t[domain.ColDuration]; raw == "" {
			c.add(idx, domain.ColDuration, missing(domain.ColDuration))
		} else if v := phase.Number(raw); math.IsNaN(v) || v < 1 {
			c.add(idx, domain.ColDuration, "Duration must be a number ≥ 1")
		}

		if raw := t[domain.ColMaxConcurrent]; raw == "" {
			c.add(idx, domain.ColMaxConcurrent, missing(domain.ColMaxConcurrent))
		} else if !positiveInt(raw) {
			c.add(idx, domain.ColMaxConcurrent, "MaxConcurrent must be a positive integer")
		}

		if raw := t[domain.ColRequiredSkills]; raw == "" {
			c.add(idx, domain.ColRequiredSkills, missing(domain.ColRequiredSkills))
		} else {
			for _, s := range splitTrim(raw) {
				if _, ok := offered[s]; !ok {
					c.add(idx, domain.ColRequiredSkills, unknownSkill(s))
				}
			}
		}

		if raw := t[domain.ColPreferredPhases]; raw != "" && !validPhases(raw) {
			c.add(idx, domain.ColPreferredPhases, "PreferredPhases malformed or invalid")
		}
	}
	return c.result(), nil
}

func validPhases(raw string) bool {
	phases, err := phase.Parse(raw)
	if err != nil {
		return false
	}
	for _, p := range phases {
		if !phase.Valid(p) {
			return false
		}
	}
	return true
}

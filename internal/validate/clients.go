package validate

import (
	"alchemist/internal/domain"
	"alchemist/internal/phase"
)

const (
	minPriority = 1
	maxPriority = 5
)

// Clients checks ClientID, PriorityLevel and that every RequestedTaskIDs entry names a task.
func Clients(clients, tasks []domain.Record) ([]domain.ValidationError, error) {
	if err := requireCollection("clients", clients); err != nil {
		return nil, err
	}
	if err := requireCollection("tasks", tasks); err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if id := t[domain.ColTaskID]; id != "" {
			known[id] = struct{}{}
		}
	}

	var c collector
	for idx, client := range clients {
		if client[domain.ColClientID] == "" {
			c.add(idx, domain.ColClientID, missing(domain.ColClientID))
		}
		if raw := client[domain.ColPriorityLevel]; raw == "" {
			c.add(idx, domain.ColPriorityLevel, missing(domain.ColPriorityLevel))
		} else if v := phase.Number(raw); !phase.IsInteger(v) || v < minPriority || v > maxPriority {
			c.add(idx, domain.ColPriorityLevel, "PriorityLevel must be an integer between 1 and 5")
		}
		if raw := client[domain.ColRequestedTaskIDs]; raw != "" {
			for _, id := range splitTrim(raw) {
				if _, ok := known[id]; !ok {
					c.add(idx, domain.ColRequestedTaskIDs, unknownTask(id))
				}
			}
		}
	}
	return c.result(), nil
}

package domain

import (
	"fmt"
	"sort"
)

// Weight categories. The first three rank the collections, the last two rank row attributes.
const (
	WeightClients         = "clients"
	WeightWorkers         = "workers"
	WeightTasks           = "tasks"
	WeightPriorityLevel   = "priorityLevel"
	WeightMaxLoadPerPhase = "maxLoadPerPhase"
)

const (
	MinWeight     = 1
	MaxWeight     = 10
	DefaultWeight = 5
)

var weightCategories = []string{WeightClients, WeightWorkers, WeightTasks, WeightPriorityLevel, WeightMaxLoadPerPhase}

// Weights maps a weight category to a value in [MinWeight, MaxWeight].
type Weights map[string]int

// WeightCategories returns the fixed category set.
func WeightCategories() []string {
	return append([]string(nil), weightCategories...)
}

func DefaultWeights() Weights {
	w := Weights{}
	for _, c := range weightCategories {
		w[c] = DefaultWeight
	}
	return w
}

// Validate rejects unknown categories and out-of-range values. A nil map is valid.
func (w Weights) Validate() error {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isWeightCategory(k) {
			return InvalidArgument("weights", fmt.Sprintf("unknown weight category %q", k))
		}
		if v := w[k]; v < MinWeight || v > MaxWeight {
			return InvalidArgument("weights", fmt.Sprintf("weight %s=%d outside [%d,%d]", k, v, MinWeight, MaxWeight))
		}
	}
	return nil
}

// Get returns the category value, or DefaultWeight when unset.
func (w Weights) Get(category string) int {
	if v, ok := w[category]; ok {
		return v
	}
	return DefaultWeight
}

// Merge returns a copy of w overlaid with other.
func (w Weights) Merge(other Weights) Weights {
	out := Weights{}
	for k, v := range w {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func isWeightCategory(k string) bool {
	for _, c := range weightCategories {
		if c == k {
			return true
		}
	}
	return false
}

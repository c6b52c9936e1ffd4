// Package schedule assigns requested tasks to qualified workers across phases.
//
// Allocation is a single deterministic greedy pass: clients in descending priority (stable),
// requested tasks in listed order, workers in dataset order, phases in declared order. The first
// worker/phase pair that satisfies skills, preferred phases, per-phase worker load and per-phase
// task concurrency receives the request. Nothing is backtracked; a request that fits nowhere is
// simply absent from the result.
//
// Malformed rows never fail a run. A worker whose slots do not parse, or whose capacity is not
// a positive integer, is not a candidate; a task with an unusable Duration, MaxConcurrent or
// RequiredSkills is never placed. Reporting those rows is the validator's job.
package schedule

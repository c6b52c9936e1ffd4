// Package auth holds the permission model shared by the engine, the HTTP API and the config
// validator.
package auth

import (
	"fmt"
	"slices"
)

// Permissions understood by the API.
const (
	DatasetsRead  = "datasets.read"
	DatasetsWrite = "datasets.write"
	RunsRead      = "runs.read"
	RunsCreate    = "runs.create"
	EventsRead    = "events.read"
	ExportRead    = "export.read"
	APIKeysManage = "apikeys.manage"
)

var all = []string{DatasetsRead, DatasetsWrite, RunsRead, RunsCreate, EventsRead, ExportRead, APIKeysManage}

// All returns every known permission.
func All() []string {
	return slices.Clone(all)
}

// Known reports whether perm is a permission the API checks.
func Known(perm string) bool {
	return slices.Contains(all, perm)
}

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Require returns ForbiddenError unless granted contains perm.
func Require(granted []string, perm string) error {
	if slices.Contains(granted, perm) {
		return nil
	}
	return ForbiddenError{Permission: perm}
}

// Normalize drops unknown and duplicate permissions and sorts the rest.
func Normalize(perms []string) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if Known(p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

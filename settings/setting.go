// Package settings provides key/value configuration persistence and a
// process-wide read-mostly cache over it.
package settings

import "github.com/marirs/velocty"

// Setting is one configuration entry. Keys are unique; writes are
// last-write-wins with no history.
type Setting struct {
	velocty.Entity

	Key   string `json:"key"`
	Value string `json:"value"`
}

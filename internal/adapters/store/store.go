// Package store persists the user-maintained trust lists.
package store

import (
	"errors"
	"strings"

	"github.com/mikey/phishguard/internal/core"
)

// ErrUnavailable wraps failures to reach the backing store.
var ErrUnavailable = errors.New("trust store unavailable")

// ErrUnknownList is returned for list keys outside core.AllListKeys.
var ErrUnknownList = errors.New("unknown trust list")

func validKey(k core.ListKey) bool {
	for _, known := range core.AllListKeys {
		if k == known {
			return true
		}
	}
	return false
}

// clean lowercases and de-duplicates entries, keeping first-seen order.
func clean(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s := strings.ToLower(strings.TrimSpace(item))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

package types

import "errors"

// Outcomes reported by the target system. ErrEdgeExists, ErrEdgeCycle and
// ErrAlreadyWatching mean the desired end state already holds; callers treat
// them as success.
var (
	ErrEdgeExists      = errors.New("relation already exists")
	ErrEdgeCycle       = errors.New("relation would create a cycle")
	ErrAlreadyWatching = errors.New("user is already watching")
	ErrStaleVersion    = errors.New("lock version is stale")
	ErrNotFound        = errors.New("not found")
)

// Copyright 2025 Shadow Atlas Contributors
//
// Package authority resolves conflicting boundary records for the same
// identity (id, boundary_type) down to a single winner, per spec.md §4.4.
// Resolution never reduces the set of distinct identities: every identity
// present in the input is present in the output exactly once.

package authority

import "errors"

var (
	ErrNoCandidates  = errors.New("authority: identity group has no candidates")
	ErrEmptyInput    = errors.New("authority: resolve called with no records")
	ErrCountMismatch = errors.New("authority: resolved output count does not match distinct input identity count")
)

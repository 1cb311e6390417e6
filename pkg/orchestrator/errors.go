package orchestrator

import "errors"

// ErrNoSessionActive names a release edge that arrives with no matching
// active capture session (already handled or never started). OnRelease
// ignores such an edge silently and does not return this value.
var ErrNoSessionActive = errors.New("orchestrator: no active capture session")

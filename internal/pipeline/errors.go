package pipeline

import "fmt"

// Pipeline stages recorded on persistence failures.
const (
	StageContext = "read-context"
	StageAppend  = "append"
)

// PersistenceError reports a store failure. Stage records how far the
// pipeline got: a failure at StageAppend means a reply was already
// generated and is returned to the caller alongside this error, so a
// successful generation is never silently discarded.
type PersistenceError struct {
	UserID string
	Stage  string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed for user %s at stage %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

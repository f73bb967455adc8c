package storage

import "fmt"

// NotFoundError reports a lookup against a workflow ID that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: workflow %q not found", e.ID)
}

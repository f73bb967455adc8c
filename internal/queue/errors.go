package queue

import "fmt"

// DependencyFailedError marks a task that never ran because one of its
// transitive dependencies failed — the cascade stops the queue from waiting
// forever on work that can no longer become ready (§5, §7).
type DependencyFailedError struct {
	TaskID           string
	FailedDependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("task %q skipped: dependency %q failed", e.TaskID, e.FailedDependency)
}

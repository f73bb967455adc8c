package types

import "time"

// TaskState is the monotonic state of a scheduled Task: Pending -> Running
// -> {Completed, Failed}.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Task is the Execution Queue's internal unit of work: a node plus its
// resolved bindings and state (§3, §9 — tasks never hold object
// back-pointers to their dependents; the queue owns that as an id arena).
type Task struct {
	ID       string
	NodeID   string
	NodeType string
	Bindings map[string]Binding
	Depends  []string
	Priority int

	State   TaskState
	Result  map[string]interface{} // output-port name -> value
	Err     error
	Elapsed time.Duration

	// Skipped is true when a not-taken conditional branch marked this task
	// Completed without running its executor (§4.5).
	Skipped bool

	// seq is the insertion sequence used to break priority ties
	// deterministically; set by the queue on add_task.
	seq uint64
}

// Seq returns the task's insertion sequence (for tie-break comparisons).
func (t *Task) Seq() uint64 { return t.seq }

// SetSeq is called once by the queue when the task is added.
func (t *Task) SetSeq(n uint64) { t.seq = n }

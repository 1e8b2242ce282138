package taskgraph

// State is the lifecycle state of a registered task.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Task is a unit of work with a unique identifier and zero or more
// dependency identifiers. The graph owns the task; callers see copies.
type Task struct {
	ID           string
	Dependencies []string
	State        State
	Result       string // set when State == StateCompleted
	Error        string // set when State == StateFailed
}

func (t *Task) clone() Task {
	out := *t
	out.Dependencies = append([]string(nil), t.Dependencies...)
	return out
}

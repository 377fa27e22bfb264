package process

// State is the lifecycle position of a supervised encode.
type State string

// Supervisor states. Completed and Failed are final.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

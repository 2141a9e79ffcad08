package contract

// Agent is a named, fixed instruction template applied to user-supplied text.
// Definitions are immutable after process start.
type Agent struct {
	Name        string
	Description string
	Instruction string
}

package section

// State is the execution step a section has reached within a run.
type State string

const (
	StatePending      State = "pending"
	StateCheckpointed State = "checkpointed"
	StateStaged       State = "staged"
	StateVerified     State = "verified"
	StateExecuted     State = "executed"
	StateFailed       State = "failed"
	StateSkipped      State = "skipped"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

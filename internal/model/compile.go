package model

import "time"

// Compile job states. A compile is created in queue and reaches exactly one
// terminal state; there are no backward transitions.
const (
	CompileStateInQueue      = "InQueue"
	CompileStateBuildSuccess = "BuildSuccess"
	CompileStateBuildError   = "BuildError"
)

// Job kinds used for metrics and event routing.
const (
	KindCompile  = "compile"
	KindBacktest = "backtest"
)

// validCompileTransitions maps each compile state to the states it may move to.
// Terminal states have no entry.
var validCompileTransitions = map[string]map[string]bool{
	CompileStateInQueue: {
		CompileStateBuildSuccess: true,
		CompileStateBuildError:   true,
	},
}

// ValidCompileTransition reports whether a compile job may move from one
// state to another.
func ValidCompileTransition(from, to string) bool {
	return validCompileTransitions[from][to]
}

// CompileTerminal reports whether the given compile state is terminal.
func CompileTerminal(state string) bool {
	return state == CompileStateBuildSuccess || state == CompileStateBuildError
}

// Compile is the job record for one compilation unit of work. The JSON field
// set is the wire contract returned verbatim by compile/create and
// compile/read; projectId and created are bookkeeping and stay server-side.
type Compile struct {
	CompileID string   `json:"compileId"`
	State     string   `json:"state"`
	Logs      []string `json:"logs"`
	Success   bool     `json:"success"`
	Errors    []string `json:"errors"`

	ProjectID int       `json:"-"`
	Created   time.Time `json:"-"`
}

// NewCompile creates a queued compile record for the given project with the
// initial log line already appended.
func NewCompile(projectID int) *Compile {
	return &Compile{
		CompileID: NewID(),
		State:     CompileStateInQueue,
		Logs:      []string{"Compilation started"},
		Success:   true,
		Errors:    []string{},
		ProjectID: projectID,
		Created:   time.Now().UTC(),
	}
}

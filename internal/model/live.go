package model

import "time"

// Live deployment statuses.
const (
	LiveStatusRunning    = "Running"
	LiveStatusStopped    = "Stopped"
	LiveStatusLiquidated = "Liquidated"
)

// LiveAlgorithm is a deployed live trading instance. The mock never executes
// anything; deployments carry canned log lines and a status that stop and
// liquidate requests can advance.
type LiveAlgorithm struct {
	ProjectID int        `json:"projectId"`
	DeployID  string     `json:"deployId"`
	Status    string     `json:"status"`
	Launched  time.Time  `json:"launched"`
	Stopped   *time.Time `json:"stopped"`

	Logs []string `json:"-"`
}

// defaultLiveLogs are the log lines attached to every new deployment.
var defaultLiveLogs = []string{
	"Algorithm initialized successfully",
	"Connected to data feed",
	"Processing market data...",
	"Order submitted: BUY 100 SPY @ $150.25",
}

// DefaultLiveLogs returns a copy of the canned deployment log lines.
func DefaultLiveLogs() []string {
	return append([]string(nil), defaultLiveLogs...)
}

// NewLiveAlgorithm creates a running deployment for the given project.
func NewLiveAlgorithm(projectID int) *LiveAlgorithm {
	return &LiveAlgorithm{
		ProjectID: projectID,
		DeployID:  NewID(),
		Status:    LiveStatusRunning,
		Launched:  time.Now().UTC(),
		Logs:      append([]string(nil), defaultLiveLogs...),
	}
}

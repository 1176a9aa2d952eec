package model

import "time"

// TradeStatistics summarizes fill-level results of a backtest.
type TradeStatistics struct {
	TotalNumberOfTrades int     `json:"TotalNumberOfTrades"`
	WinRate             float64 `json:"WinRate"`
}

// PortfolioStatistics summarizes portfolio-level results of a backtest.
type PortfolioStatistics struct {
	TotalNetProfit float64 `json:"TotalNetProfit"`
	SharpeRatio    float64 `json:"SharpeRatio"`
}

// TotalPerformance groups the statistics blocks of a backtest result.
type TotalPerformance struct {
	TradeStatistics     TradeStatistics     `json:"TradeStatistics"`
	PortfolioStatistics PortfolioStatistics `json:"PortfolioStatistics"`
}

// BacktestResult is the result payload of a backtest. It is present on the
// record from creation with all statistics at their zero values, and is
// replaced in a single store write when the backtest completes.
type BacktestResult struct {
	TotalPerformance TotalPerformance `json:"TotalPerformance"`
	Charts           map[string]any   `json:"Charts"`
	Orders           map[string]any   `json:"Orders"`
	Statistics       map[string]any   `json:"Statistics"`
}

// NewBacktestResult returns a result payload with zeroed statistics and empty
// chart/order/statistics objects, so it marshals as {} blocks rather than null.
func NewBacktestResult() *BacktestResult {
	return &BacktestResult{
		Charts:     map[string]any{},
		Orders:     map[string]any{},
		Statistics: map[string]any{},
	}
}

// Backtest is the job record for one backtest unit of work. progress advances
// from 0.0 to 1.0 in tenths; completed flips to true in the same write that
// pins progress to 1.0 and fills in the result.
type Backtest struct {
	Name       string          `json:"name"`
	Note       string          `json:"note"`
	BacktestID string          `json:"backtestId"`
	ProjectID  int             `json:"projectId"`
	CompileID  string          `json:"compileId,omitempty"`
	Completed  bool            `json:"completed"`
	Progress   float64         `json:"progress"`
	Result     *BacktestResult `json:"result"`
	Error      string          `json:"error"`
	Stacktrace string          `json:"stacktrace"`
	Created    time.Time       `json:"created"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

// NewBacktest creates a backtest record at zero progress for the given
// project. compileID is recorded but not validated; the platform accepts
// backtests against unknown compile ids.
func NewBacktest(projectID int, compileID, name string) *Backtest {
	if name == "" {
		name = "Untitled Backtest"
	}
	return &Backtest{
		Name:       name,
		BacktestID: NewID(),
		ProjectID:  projectID,
		CompileID:  compileID,
		Result:     NewBacktestResult(),
		Created:    time.Now().UTC(),
		Success:    true,
		Errors:     []string{},
	}
}

// Terminal reports whether the backtest has reached a terminal state, either
// completion or failure.
func (b *Backtest) Terminal() bool {
	return b.Completed || b.Error != ""
}

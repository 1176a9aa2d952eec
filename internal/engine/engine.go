package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davisjt/quantcloud/internal/model"
	"github.com/davisjt/quantcloud/internal/store"
)

// Simulation schedules. A compile finishes after a fixed delay; a backtest
// advances its progress once per time unit for ten ticks.
const (
	compileDelayUnits = 2
	backtestTicks     = 10
)

// FaultHook lets tests inject failures into job runners. It is consulted once
// per job, just before the terminal write; a non-nil error drives the job to
// its failure state instead.
type FaultHook func(kind, jobID string) error

// Engine owns the background simulation of compile and backtest jobs. Every
// submitted job gets exactly one runner goroutine, tracked so callers can
// await completion deterministically.
type Engine struct {
	store    store.Store
	logger   *slog.Logger
	clock    Clock
	timeUnit time.Duration
	broker   *Broker
	wg       sync.WaitGroup
	fault    FaultHook
}

// NewEngine creates a job engine. timeUnit scales every simulated delay; the
// production server uses one second, tests use a few milliseconds.
func NewEngine(s store.Store, logger *slog.Logger, clock Clock, timeUnit time.Duration) *Engine {
	return &Engine{
		store:    s,
		logger:   logger,
		clock:    clock,
		timeUnit: timeUnit,
		broker:   NewBroker(),
	}
}

// Broker returns the engine's event broker for SSE subscription.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// SetFaultHook installs a fault injection hook. Must be called before any
// job is submitted.
func (e *Engine) SetFaultHook(h FaultHook) {
	e.fault = h
}

// Wait blocks until all in-flight job runners complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// SubmitCompile registers the compile record and launches its runner. The
// record is observable via the store in its queued state before this returns.
func (e *Engine) SubmitCompile(ctx context.Context, c *model.Compile) error {
	if err := e.store.CreateCompile(ctx, c); err != nil {
		return fmt.Errorf("create compile: %w", err)
	}
	jobsCreated.WithLabelValues(model.KindCompile).Inc()

	id := c.CompileID
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runCompile(id)
	}()
	return nil
}

// SubmitBacktest registers the backtest record and launches its runner.
func (e *Engine) SubmitBacktest(ctx context.Context, b *model.Backtest) error {
	if err := e.store.CreateBacktest(ctx, b); err != nil {
		return fmt.Errorf("create backtest: %w", err)
	}
	jobsCreated.WithLabelValues(model.KindBacktest).Inc()

	id := b.BacktestID
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runBacktest(id)
	}()
	return nil
}

// runCompile drives one compile record to its terminal state: a fixed delay,
// then a single atomic store write carrying the state change and the
// completion log line. Runner faults never propagate; the record stays in its
// last written state.
func (e *Engine) runCompile(id string) {
	defer e.broker.Finish(id)

	e.clock.Sleep(compileDelayUnits * e.timeUnit)

	if err := e.checkFault(model.KindCompile, id); err != nil {
		if serr := e.store.FailCompile(context.Background(), id, err.Error()); serr != nil {
			e.logger.Error("fail compile", "compile_id", id, "error", serr)
			return
		}
		e.broker.Publish(id, "state "+model.CompileStateBuildError)
		jobsFinished.WithLabelValues(model.KindCompile, "failed").Inc()
		return
	}

	if err := e.store.FinishCompile(context.Background(), id, "Compilation completed successfully"); err != nil {
		e.logger.Error("finish compile", "compile_id", id, "error", err)
		return
	}
	e.broker.Publish(id, "state "+model.CompileStateBuildSuccess)
	jobsFinished.WithLabelValues(model.KindCompile, "succeeded").Inc()
}

// runBacktest drives one backtest record: ten evenly spaced progress ticks,
// then the completing write that atomically sets completed, pins progress to
// 1.0 and fills in the result payload.
func (e *Engine) runBacktest(id string) {
	defer e.broker.Finish(id)

	for i := 1; i <= backtestTicks; i++ {
		e.clock.Sleep(e.timeUnit)
		progress := float64(i) / backtestTicks
		if err := e.store.SetBacktestProgress(context.Background(), id, progress); err != nil {
			e.logger.Error("advance backtest", "backtest_id", id, "progress", progress, "error", err)
			return
		}
		e.broker.Publish(id, fmt.Sprintf("progress %g", progress))
	}

	if err := e.checkFault(model.KindBacktest, id); err != nil {
		if serr := e.store.FailBacktest(context.Background(), id, err.Error(), "simulated runtime fault"); serr != nil {
			e.logger.Error("fail backtest", "backtest_id", id, "error", serr)
			return
		}
		e.broker.Publish(id, "error "+err.Error())
		jobsFinished.WithLabelValues(model.KindBacktest, "failed").Inc()
		return
	}

	if err := e.store.CompleteBacktest(context.Background(), id, finalBacktestResult()); err != nil {
		e.logger.Error("complete backtest", "backtest_id", id, "error", err)
		return
	}
	e.broker.Publish(id, "completed")
	jobsFinished.WithLabelValues(model.KindBacktest, "succeeded").Inc()
}

func (e *Engine) checkFault(kind, id string) error {
	if e.fault == nil {
		return nil
	}
	return e.fault(kind, id)
}

// finalBacktestResult is the fixed statistics payload every successful
// backtest produces.
func finalBacktestResult() *model.BacktestResult {
	r := model.NewBacktestResult()
	r.TotalPerformance.TradeStatistics = model.TradeStatistics{
		TotalNumberOfTrades: 25,
		WinRate:             0.68,
	}
	r.TotalPerformance.PortfolioStatistics = model.PortfolioStatistics{
		TotalNetProfit: 0.15,
		SharpeRatio:    1.2,
	}
	return r
}

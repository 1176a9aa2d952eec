package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/davisjt/quantcloud/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestProject(t *testing.T, s *SQLiteStore) *model.Project {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	p := &model.Project{Name: "Test Algorithm", Language: "C#", Created: now, Modified: now}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestCreateProjectAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	p1 := createTestProject(t, s)
	p2 := createTestProject(t, s)

	if p1.ProjectID != 1 {
		t.Errorf("first project id = %d, want 1", p1.ProjectID)
	}
	if p2.ProjectID != p1.ProjectID+1 {
		t.Errorf("second project id = %d, want %d", p2.ProjectID, p1.ProjectID+1)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProject(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject error = %v, want ErrNotFound", err)
	}
}

func TestListProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestProject(t, s)
	createTestProject(t, s)

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("len(projects) = %d, want 2", len(projects))
	}
}

func TestPutFileOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := createTestProject(t, s)

	f := &model.ProjectFile{Name: "main.cs", Content: "v1", Modified: time.Now().UTC()}
	if err := s.PutFile(ctx, p.ProjectID, f); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	f.Content = "v2"
	if err := s.PutFile(ctx, p.ProjectID, f); err != nil {
		t.Fatalf("PutFile overwrite: %v", err)
	}

	got, err := s.GetFile(ctx, p.ProjectID, "main.cs")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.Content != "v2" {
		t.Errorf("Content = %q, want v2", got.Content)
	}

	files, err := s.ListFiles(ctx, p.ProjectID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("len(files) = %d, want 1", len(files))
	}
}

func TestGetFileNotFound(t *testing.T) {
	s := newTestStore(t)
	p := createTestProject(t, s)
	if _, err := s.GetFile(context.Background(), p.ProjectID, "ghost.cs"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFile error = %v, want ErrNotFound", err)
	}
}

func TestCompileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := model.NewCompile(1)

	if err := s.CreateCompile(ctx, c); err != nil {
		t.Fatalf("CreateCompile: %v", err)
	}

	got, err := s.GetCompile(ctx, c.CompileID)
	if err != nil {
		t.Fatalf("GetCompile: %v", err)
	}
	if got.State != model.CompileStateInQueue {
		t.Errorf("State = %q, want InQueue", got.State)
	}
	if len(got.Logs) != 1 || got.Logs[0] != "Compilation started" {
		t.Errorf("Logs = %v, want [Compilation started]", got.Logs)
	}
	if !got.Success {
		t.Error("Success = false, want true")
	}
	if len(got.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", got.Errors)
	}
}

func TestFinishCompile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := model.NewCompile(1)
	if err := s.CreateCompile(ctx, c); err != nil {
		t.Fatalf("CreateCompile: %v", err)
	}

	if err := s.FinishCompile(ctx, c.CompileID, "Compilation completed successfully"); err != nil {
		t.Fatalf("FinishCompile: %v", err)
	}

	got, err := s.GetCompile(ctx, c.CompileID)
	if err != nil {
		t.Fatalf("GetCompile: %v", err)
	}
	if got.State != model.CompileStateBuildSuccess {
		t.Errorf("State = %q, want BuildSuccess", got.State)
	}
	if len(got.Logs) != 2 {
		t.Fatalf("len(Logs) = %d, want 2", len(got.Logs))
	}
	if got.Logs[1] != "Compilation completed successfully" {
		t.Errorf("Logs[1] = %q", got.Logs[1])
	}

	// A finished compile may not transition again.
	if err := s.FinishCompile(ctx, c.CompileID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second FinishCompile error = %v, want ErrInvalidTransition", err)
	}
	if err := s.FailCompile(ctx, c.CompileID, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("FailCompile after finish error = %v, want ErrInvalidTransition", err)
	}
}

func TestFailCompile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := model.NewCompile(1)
	if err := s.CreateCompile(ctx, c); err != nil {
		t.Fatalf("CreateCompile: %v", err)
	}

	if err := s.FailCompile(ctx, c.CompileID, "syntax error"); err != nil {
		t.Fatalf("FailCompile: %v", err)
	}

	got, err := s.GetCompile(ctx, c.CompileID)
	if err != nil {
		t.Fatalf("GetCompile: %v", err)
	}
	if got.State != model.CompileStateBuildError {
		t.Errorf("State = %q, want BuildError", got.State)
	}
	if got.Success {
		t.Error("Success = true, want false")
	}
	if len(got.Errors) != 1 || got.Errors[0] != "syntax error" {
		t.Errorf("Errors = %v, want [syntax error]", got.Errors)
	}
}

func TestFinishCompileNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.FinishCompile(context.Background(), "nonexistent", "done"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishCompile error = %v, want ErrNotFound", err)
	}
}

func TestBacktestProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := model.NewBacktest(1, "", "bt")
	if err := s.CreateBacktest(ctx, b); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	if err := s.SetBacktestProgress(ctx, b.BacktestID, 0.3); err != nil {
		t.Fatalf("SetBacktestProgress: %v", err)
	}
	// Backwards movement is rejected.
	if err := s.SetBacktestProgress(ctx, b.BacktestID, 0.2); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("backwards progress error = %v, want ErrInvalidTransition", err)
	}

	got, err := s.GetBacktest(ctx, b.BacktestID)
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.Progress != 0.3 {
		t.Errorf("Progress = %v, want 0.3", got.Progress)
	}
	if got.Completed {
		t.Error("Completed = true before terminal write")
	}
	if got.Result.TotalPerformance.TradeStatistics.TotalNumberOfTrades != 0 {
		t.Error("result statistics should stay zero before completion")
	}
}

func TestCompleteBacktestAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := model.NewBacktest(1, "", "bt")
	if err := s.CreateBacktest(ctx, b); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	result := model.NewBacktestResult()
	result.TotalPerformance.TradeStatistics = model.TradeStatistics{TotalNumberOfTrades: 25, WinRate: 0.68}
	result.TotalPerformance.PortfolioStatistics = model.PortfolioStatistics{TotalNetProfit: 0.15, SharpeRatio: 1.2}
	if err := s.CompleteBacktest(ctx, b.BacktestID, result); err != nil {
		t.Fatalf("CompleteBacktest: %v", err)
	}

	got, err := s.GetBacktest(ctx, b.BacktestID)
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if !got.Completed {
		t.Error("Completed = false after terminal write")
	}
	if got.Progress != 1.0 {
		t.Errorf("Progress = %v, want 1.0", got.Progress)
	}
	if got.Result.TotalPerformance.TradeStatistics.TotalNumberOfTrades != 25 {
		t.Errorf("TotalNumberOfTrades = %d, want 25", got.Result.TotalPerformance.TradeStatistics.TotalNumberOfTrades)
	}

	// No mutation after terminal state.
	if err := s.SetBacktestProgress(ctx, b.BacktestID, 0.5); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("progress after completion error = %v, want ErrInvalidTransition", err)
	}
	if err := s.CompleteBacktest(ctx, b.BacktestID, result); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double completion error = %v, want ErrInvalidTransition", err)
	}
}

func TestFailBacktest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := model.NewBacktest(1, "", "bt")
	if err := s.CreateBacktest(ctx, b); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}
	if err := s.SetBacktestProgress(ctx, b.BacktestID, 0.4); err != nil {
		t.Fatalf("SetBacktestProgress: %v", err)
	}

	if err := s.FailBacktest(ctx, b.BacktestID, "runtime fault", "trace"); err != nil {
		t.Fatalf("FailBacktest: %v", err)
	}

	got, err := s.GetBacktest(ctx, b.BacktestID)
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.Completed {
		t.Error("failed backtest should not be marked completed")
	}
	if got.Progress != 0.4 {
		t.Errorf("Progress = %v, want last value 0.4", got.Progress)
	}
	if got.Error != "runtime fault" || got.Stacktrace != "trace" {
		t.Errorf("Error/Stacktrace = %q/%q", got.Error, got.Stacktrace)
	}

	if err := s.SetBacktestProgress(ctx, b.BacktestID, 0.9); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("progress after failure error = %v, want ErrInvalidTransition", err)
	}
}

func TestGetBacktestNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetBacktest(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBacktest error = %v, want ErrNotFound", err)
	}
	if err := s.SetBacktestProgress(context.Background(), "nonexistent", 0.1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetBacktestProgress error = %v, want ErrNotFound", err)
	}
}

func TestListBacktestsByProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		b := model.NewBacktest(1, "", fmt.Sprintf("bt-%d", i))
		if err := s.CreateBacktest(ctx, b); err != nil {
			t.Fatalf("CreateBacktest: %v", err)
		}
	}
	other := model.NewBacktest(2, "", "other")
	if err := s.CreateBacktest(ctx, other); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	backtests, err := s.ListBacktests(ctx, 1)
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(backtests) != 3 {
		t.Errorf("len(backtests) = %d, want 3", len(backtests))
	}
}

func TestLiveLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	l := model.NewLiveAlgorithm(1)
	if err := s.CreateLive(ctx, l); err != nil {
		t.Fatalf("CreateLive: %v", err)
	}

	got, err := s.GetLive(ctx, l.DeployID)
	if err != nil {
		t.Fatalf("GetLive: %v", err)
	}
	if got.Status != model.LiveStatusRunning {
		t.Errorf("Status = %q, want Running", got.Status)
	}
	if got.Stopped != nil {
		t.Error("Stopped should be nil on a running deployment")
	}
	if len(got.Logs) == 0 {
		t.Error("deployment logs should not be empty")
	}

	if err := s.StopLive(ctx, 1, model.LiveStatusStopped); err != nil {
		t.Fatalf("StopLive: %v", err)
	}
	got, err = s.GetLive(ctx, l.DeployID)
	if err != nil {
		t.Fatalf("GetLive after stop: %v", err)
	}
	if got.Status != model.LiveStatusStopped {
		t.Errorf("Status = %q, want Stopped", got.Status)
	}
	if got.Stopped == nil {
		t.Error("Stopped should be set after StopLive")
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestProject(t, s)
	if err := s.CreateCompile(ctx, model.NewCompile(1)); err != nil {
		t.Fatalf("CreateCompile: %v", err)
	}
	if err := s.CreateBacktest(ctx, model.NewBacktest(1, "", "bt")); err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Projects != 1 || counts.Compiles != 1 || counts.Backtests != 1 || counts.Live != 0 {
		t.Errorf("Counts = %+v, want 1/1/1/0", counts)
	}
}

// Concurrent writers on distinct records must not interfere, and a write by
// any goroutine must be visible to any subsequent read.
func TestConcurrentJobWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		c := model.NewCompile(1)
		ids[i] = c.CompileID
		if err := s.CreateCompile(ctx, c); err != nil {
			t.Fatalf("CreateCompile[%d]: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.FinishCompile(ctx, id, "Compilation completed successfully"); err != nil {
				t.Errorf("FinishCompile(%s): %v", id, err)
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		got, err := s.GetCompile(ctx, id)
		if err != nil {
			t.Fatalf("GetCompile(%s): %v", id, err)
		}
		if got.State != model.CompileStateBuildSuccess {
			t.Errorf("State(%s) = %q, want BuildSuccess", id, got.State)
		}
	}
}

package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
	"combat-mc/internal/world"
)

func builtIn(t *testing.T, name string) *scenario.Scenario {
	t.Helper()
	sc, ok := scenario.BuiltIn()[name]
	if !ok {
		t.Fatalf("no built-in scenario %q", name)
	}
	return &sc
}

func wait(t *testing.T, j *Job) ([]TrialResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return j.Wait(ctx)
}

func runBatch(t *testing.T, b engine.Builder, cfg BatchConfig) []TrialResult {
	t.Helper()
	c := NewController(b, WithYielder(noWait), WithTrialPause(0))
	res, err := wait(t, c.Start(quietCtx(), cfg))
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	return res
}

func TestController_Deterministic(t *testing.T) {
	cfg := BatchConfig{Scenario: builtIn(t, "orbital-skirmish"), NumRuns: 3, BaseSeed: 7, MaxSimTime: 300}
	a := runBatch(t, world.NewBuilder(), cfg)
	b := runBatch(t, world.NewBuilder(), cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs of the same batch differ")
	}
	for i, r := range a {
		if r.RunIndex != i || r.Seed != int64(7+i) {
			t.Fatalf("trial %d has index %d seed %d", i, r.RunIndex, r.Seed)
		}
	}
}

func TestController_DeterministicAirModel(t *testing.T) {
	cfg := BatchConfig{Scenario: builtIn(t, "air-defense"), NumRuns: 2, BaseSeed: 1, MaxSimTime: 600}
	a := runBatch(t, world.NewBuilder(), cfg)
	b := runBatch(t, world.NewBuilder(), cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs of the same batch differ")
	}
}

func TestController_AtMostOncePerPhysicalEvent(t *testing.T) {
	res := runBatch(t, world.NewBuilder(), BatchConfig{Scenario: builtIn(t, "dogfight"), NumRuns: 4, BaseSeed: 3, MaxSimTime: 600})
	for _, r := range res {
		launches := map[string]int{}
		outcomes := map[string]int{}
		for _, ev := range r.EngagementLog {
			k := ev.SourceID + ">" + ev.TargetID
			if ev.Result == engine.ResultLaunch {
				launches[k]++
			} else {
				outcomes[k]++
			}
		}
		// Every shot resolves at most once, so outcomes never outnumber launches per pair.
		for k, n := range outcomes {
			if n > launches[k] {
				t.Fatalf("trial %d: %d outcomes for %d launches on %s", r.RunIndex, n, launches[k], k)
			}
		}
		// Each aircraft carries four missiles.
		for k, n := range launches {
			if n > 4 {
				t.Fatalf("trial %d: %d launches on %s", r.RunIndex, n, k)
			}
		}
	}
}

func TestController_EarlyTermination(t *testing.T) {
	sc := builtIn(t, "orbital-skirmish")
	var kept []scenario.Entity
	for _, e := range sc.Entities {
		if e.Team == engine.TeamRed && e.Role == scenario.RoleHVA {
			continue
		}
		kept = append(kept, e)
	}
	sc.Entities = kept
	res := runBatch(t, world.NewBuilder(), BatchConfig{Scenario: sc, NumRuns: 2, BaseSeed: 1, MaxSimTime: 600})
	for _, r := range res {
		if r.SimTimeFinal >= 600 {
			t.Fatalf("trial %d ran to the horizon", r.RunIndex)
		}
	}
}

func TestController_HVAStandoffExample(t *testing.T) {
	var steps []int
	res := runBatch(t, world.NewBuilder(), BatchConfig{
		Scenario:   builtIn(t, "hva-standoff"),
		NumRuns:    5,
		BaseSeed:   100,
		MaxSimTime: 60,
		StepSize:   0.1,
	})
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}
	for i, r := range res {
		if r.Seed != int64(100+i) {
			t.Fatalf("trial %d seed %d", i, r.Seed)
		}
		n := int(math.Round(r.SimTimeFinal / 0.1))
		steps = append(steps, n)
		if n > 600 {
			t.Fatalf("trial %d exceeded 600 steps", i)
		}
	}
	// Two passive relays resolve on the very first step.
	if !reflect.DeepEqual(steps, []int{1, 1, 1, 1, 1}) {
		t.Fatalf("expected single-step trials, got %v", steps)
	}
}

func TestController_PartialFailureIsolation(t *testing.T) {
	wb := world.NewBuilder()
	calls := 0
	b := engine.BuilderFunc(func(sc *scenario.Scenario) (engine.Instance, error) {
		calls++
		if calls == 3 {
			return nil, fmt.Errorf("entity 0: missing team")
		}
		return wb.Build(sc)
	})
	res := runBatch(t, b, BatchConfig{Scenario: builtIn(t, "dogfight"), NumRuns: 5, BaseSeed: 10, MaxSimTime: 120})
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}
	for i, r := range res {
		if i == 2 {
			if r.Error == nil || r.Error.Kind != KindBuild {
				t.Fatalf("trial 3 should carry a build error, got %+v", r.Error)
			}
			continue
		}
		if r.Error != nil {
			t.Fatalf("trial %d unexpectedly failed: %v", i+1, r.Error)
		}
		if len(r.EntitySurvival) != 4 || r.SimTimeFinal <= 0 {
			t.Fatalf("trial %d has no data: %+v", i+1, r)
		}
	}

	// The healthy trials match an undisturbed batch.
	clean := runBatch(t, world.NewBuilder(), BatchConfig{Scenario: builtIn(t, "dogfight"), NumRuns: 5, BaseSeed: 10, MaxSimTime: 120})
	for _, i := range []int{0, 1, 3, 4} {
		if !reflect.DeepEqual(res[i], clean[i]) {
			t.Fatalf("trial %d differs from the clean batch", i+1)
		}
	}
}

func TestController_ProgressMonotonic(t *testing.T) {
	type call struct{ completed, total, pct int }
	var calls []call
	var completed []TrialResult
	cfg := BatchConfig{
		Scenario:   builtIn(t, "hva-standoff"),
		NumRuns:    7,
		OnProgress: func(c, tot, pct int) { calls = append(calls, call{c, tot, pct}) },
		OnComplete: func(r []TrialResult) { completed = r },
	}
	res := runBatch(t, world.NewBuilder(), cfg)
	if len(calls) != 7 {
		t.Fatalf("expected 7 progress calls, got %d", len(calls))
	}
	for i, c := range calls {
		want := call{i + 1, 7, int(math.Round(100 * float64(i+1) / 7))}
		if c != want {
			t.Fatalf("call %d = %+v, want %+v", i, c, want)
		}
	}
	if !reflect.DeepEqual(completed, res) {
		t.Fatal("completion callback must receive the resolved list")
	}
}

func TestController_OnStartCarriesJobID(t *testing.T) {
	var gotID string
	var gotTotal, trialsBefore int
	trials := 0
	c := NewController(world.NewBuilder(), WithYielder(noWait), WithTrialPause(0))
	j := c.Start(quietCtx(), BatchConfig{
		Scenario: builtIn(t, "hva-standoff"),
		NumRuns:  2,
		OnStart: func(id string, _ time.Time, total int) {
			gotID, gotTotal, trialsBefore = id, total, trials
		},
		OnTrial: func(TrialResult) { trials++ },
	})
	if _, err := wait(t, j); err != nil {
		t.Fatal(err)
	}
	if gotID != j.ID() || gotTotal != 2 || trialsBefore != 0 {
		t.Fatalf("OnStart got id=%q total=%d after %d trials", gotID, gotTotal, trialsBefore)
	}
}

func TestController_Cancellation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	b := engine.BuilderFunc(func(sc *scenario.Scenario) (engine.Instance, error) {
		started <- struct{}{}
		<-release
		return &fakeInstance{}, nil
	})
	c := NewController(b, WithYielder(noWait), WithTrialPause(0))
	completeCalled := false
	j := c.Start(quietCtx(), BatchConfig{
		Scenario:   emptyScenario,
		NumRuns:    3,
		MaxSimTime: 1,
		OnComplete: func([]TrialResult) { completeCalled = true },
	})
	<-started
	c.Cancel()
	c.Cancel()
	close(release)

	res, err := wait(t, j)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	var ce *CancellationError
	if !errors.As(err, &ce) || ce.Completed != 1 || ce.Total != 3 {
		t.Fatalf("unexpected cancellation detail %+v", ce)
	}
	if res != nil {
		t.Fatalf("cancelled batch must not surface results, got %d", len(res))
	}
	if completeCalled {
		t.Fatal("completion callback fired on a cancelled batch")
	}
	if c.IsRunning() {
		t.Fatal("controller still running after cancellation")
	}
	if len(c.Results()) != 0 {
		t.Fatal("cancelled results must be discarded")
	}
}

func TestController_CancelWhenIdleIsNoop(t *testing.T) {
	c := NewController(world.NewBuilder(), WithYielder(noWait), WithTrialPause(0))
	c.Cancel()
	res, err := wait(t, c.Start(quietCtx(), BatchConfig{Scenario: builtIn(t, "hva-standoff"), NumRuns: 2}))
	if err != nil || len(res) != 2 {
		t.Fatalf("idle cancel leaked into the next batch: %v, %d results", err, len(res))
	}
}

func TestController_RejectsConcurrentStart(t *testing.T) {
	release := make(chan struct{})
	b := engine.BuilderFunc(func(sc *scenario.Scenario) (engine.Instance, error) {
		<-release
		return &fakeInstance{}, nil
	})
	c := NewController(b, WithYielder(noWait), WithTrialPause(0))
	first := c.Start(quietCtx(), BatchConfig{Scenario: emptyScenario, NumRuns: 1, MaxSimTime: 0.1})
	if !c.IsRunning() {
		t.Fatal("expected running batch")
	}
	second := c.Start(quietCtx(), BatchConfig{Scenario: emptyScenario, NumRuns: 1})
	select {
	case <-second.Done():
	default:
		t.Fatal("rejected job must already be done")
	}
	if _, err := wait(t, second); !errors.Is(err, ErrBatchRunning) {
		t.Fatalf("expected ErrBatchRunning, got %v", err)
	}
	if !c.IsRunning() || c.Current() != first {
		t.Fatal("rejection must not disturb the running batch")
	}
	close(release)
	if res, err := wait(t, first); err != nil || len(res) != 1 {
		t.Fatalf("first batch failed: %v", err)
	}
	if c.IsRunning() {
		t.Fatal("expected idle controller")
	}
	if len(c.Results()) != 1 || first.ID() == second.ID() {
		t.Fatal("expected last results and distinct job ids")
	}
}

func TestController_ContextCancelStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(quietCtx())
	b := engine.BuilderFunc(func(sc *scenario.Scenario) (engine.Instance, error) {
		cancel()
		return &fakeInstance{}, nil
	})
	c := NewController(b, WithYielder(noWait), WithTrialPause(0))
	_, err := wait(t, c.Start(ctx, BatchConfig{Scenario: emptyScenario, NumRuns: 4, MaxSimTime: 1}))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestController_ContextCancelInsideLastTrial(t *testing.T) {
	ctx, cancel := context.WithCancel(quietCtx())
	defer cancel()
	builds := 0
	b := engine.BuilderFunc(func(sc *scenario.Scenario) (engine.Instance, error) {
		builds++
		inst := &fakeInstance{}
		if builds == 2 {
			steps := 0
			inst.systems = []engine.System{func(float64, engine.Instance) error {
				if steps++; steps == 3 {
					cancel()
				}
				return nil
			}}
		}
		return inst, nil
	})
	c := NewController(b, WithYielder(noWait), WithTrialPause(0))
	completeCalled := false
	var recorded []TrialResult
	j := c.Start(ctx, BatchConfig{
		Scenario:   emptyScenario,
		NumRuns:    2,
		MaxSimTime: 10,
		ChunkSize:  5,
		OnTrial:    func(r TrialResult) { recorded = append(recorded, r) },
		OnComplete: func([]TrialResult) { completeCalled = true },
	})

	res, err := wait(t, j)
	var ce *CancellationError
	if !errors.As(err, &ce) || ce.Completed != 1 || ce.Total != 2 {
		t.Fatalf("expected cancellation after one trial, got %v", err)
	}
	if res != nil || completeCalled {
		t.Fatal("interrupted batch must not complete")
	}
	if len(recorded) != 1 || !near(recorded[0].SimTimeFinal, 10) {
		t.Fatalf("only the finished trial may be recorded, got %+v", recorded)
	}
	if len(c.Results()) != 0 {
		t.Fatal("interrupted batch must not publish results")
	}
}

func TestController_TrialPauseBetweenTrials(t *testing.T) {
	y := &countingYielder{}
	c := NewController(world.NewBuilder(), WithYielder(y), WithTrialPause(25*time.Millisecond))
	if _, err := wait(t, c.Start(quietCtx(), BatchConfig{Scenario: builtIn(t, "hva-standoff"), NumRuns: 3})); err != nil {
		t.Fatal(err)
	}
	// Single-step trials never yield between chunks, so only the two inter-trial pauses remain.
	if !reflect.DeepEqual(y.delays, []time.Duration{25 * time.Millisecond, 25 * time.Millisecond}) {
		t.Fatalf("unexpected yields %v", y.delays)
	}
}

func TestController_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := NewController(world.NewBuilder(), WithYielder(noWait), WithTrialPause(0), WithMetrics(m))
	if _, err := wait(t, c.Start(quietCtx(), BatchConfig{Scenario: builtIn(t, "hva-standoff"), NumRuns: 3})); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.trials.WithLabelValues("early")); got != 3 {
		t.Fatalf("expected 3 early trials, got %v", got)
	}
	if got := testutil.ToFloat64(m.batches.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.progress); got != 100 {
		t.Fatalf("expected progress 100, got %v", got)
	}
	if got := testutil.ToFloat64(m.running); got != 0 {
		t.Fatalf("expected idle gauge, got %v", got)
	}
}

package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"combat-mc/internal/engine"
	"combat-mc/internal/logging"
	"combat-mc/internal/scenario"
)

// Executor runs single trials against instances produced by Builder.
type Executor struct {
	Builder engine.Builder
	// Yielder is consulted between chunks. Nil means SchedulerYielder.
	Yielder Yielder
	Metrics *Metrics
	// OnEvent, when set, is called for every engagement event right after it is logged.
	OnEvent func(trial int, ev EngagementEvent)
}

// TrialSpec identifies one trial and its stepping budget.
type TrialSpec struct {
	Index     int
	Seed      int64
	Horizon   float64
	StepSize  float64
	ChunkSize int
}

// TotalSteps returns ceil(Horizon/StepSize). A non-positive StepSize counts as DefaultStepSize.
func (s TrialSpec) TotalSteps() int {
	return int(math.Ceil(s.Horizon / s.step()))
}

func (s TrialSpec) step() float64 {
	if s.StepSize <= 0 {
		return DefaultStepSize
	}
	return s.StepSize
}

// RunTrial runs one trial to its horizon or until it resolves. Build and tick failures are
// reported on the returned result. The error is non-nil only when the yielder stopped the trial
// at a chunk boundary, for example because ctx was cancelled; the result then holds the partial
// data and must not be treated as a finished trial.
func (x *Executor) RunTrial(ctx context.Context, sc *scenario.Scenario, spec TrialSpec) (TrialResult, error) {
	logger := logging.FromContext(ctx).With("trial", spec.Index, "seed", spec.Seed)
	res := TrialResult{
		RunIndex:       spec.Index,
		Seed:           spec.Seed,
		EngagementLog:  []EngagementEvent{},
		EntitySurvival: map[string]SurvivalRecord{},
	}

	inst, err := x.build(sc)
	if err != nil {
		res.Error = &TrialError{Kind: KindBuild, Err: err}
		logger.Warn("trial build failed", "error", err)
		x.Metrics.observeTrial(res, false)
		return res, nil
	}
	inst.SetRand(rand.New(rand.NewSource(spec.Seed)))
	if r, ok := inst.(engine.EventResetter); ok {
		r.ResetEvents()
	}

	yielder := x.Yielder
	if yielder == nil {
		yielder = SchedulerYielder{}
	}
	chunk := spec.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	dt := spec.step()
	dedup := NewDedupState()
	total := spec.TotalSteps()
	resolved := false
	var interrupted error

	for done := 0; done < total && !resolved && res.Error == nil; {
		end := min(done+chunk, total)
		for ; done < end; done++ {
			n := len(res.EngagementLog)
			if err := x.step(inst, dt, &res.EngagementLog, dedup); err != nil {
				res.Error = &TrialError{Kind: KindTick, SimTime: inst.SimTime(), Err: err}
				logger.Warn("trial tick failed", "sim_time", inst.SimTime(), "error", err)
				break
			}
			x.emit(spec.Index, res.EngagementLog[n:])
			if IsResolved(inst) {
				resolved = true
				done++
				break
			}
		}
		if done < total && !resolved && res.Error == nil {
			if err := yielder.Yield(ctx, 0); err != nil {
				logger.Info("trial interrupted", "sim_time", inst.SimTime(), "error", err)
				interrupted = fmt.Errorf("trial %d interrupted at t=%g s: %w", spec.Index, inst.SimTime(), err)
				break
			}
		}
	}

	res.SimTimeFinal = inst.SimTime()
	res.EntitySurvival = CollectSurvival(inst)
	if interrupted != nil {
		return res, interrupted
	}
	if resolved {
		logger.Debug("trial resolved early", "sim_time", res.SimTimeFinal)
	}
	x.Metrics.observeTrial(res, resolved)
	return res, nil
}

func (x *Executor) build(sc *scenario.Scenario) (inst engine.Instance, err error) {
	if x.Builder == nil {
		return nil, errors.New("no simulation builder configured")
	}
	if sc == nil {
		return nil, errors.New("no scenario")
	}
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	inst, err = x.Builder.Build(sc)
	if err == nil && inst == nil {
		err = errors.New("builder returned no instance")
	}
	return inst, err
}

// step advances inst by dt, runs its systems and watches the new state. Panics raised by a
// system are returned as errors.
func (x *Executor) step(inst engine.Instance, dt float64, log *[]EngagementEvent, dedup DedupState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	inst.SetSimTime(inst.SimTime() + dt)
	for _, sys := range inst.Systems() {
		if err := sys(dt, inst); err != nil {
			return err
		}
	}
	Watch(inst, inst.SimTime(), log, dedup)
	return nil
}

func (x *Executor) emit(trial int, evs []EngagementEvent) {
	for _, ev := range evs {
		x.Metrics.observeEvent(ev)
		if x.OnEvent != nil {
			x.OnEvent(trial, ev)
		}
	}
}

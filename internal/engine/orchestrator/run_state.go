package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/engine/resource"
)

type result struct {
	index   int
	outcome domain.Outcome
}

// runState is the bookkeeping of one build. It is owned by the Build goroutine;
// workers only read their unit and report back on resultsCh.
type runState struct {
	o          *Orchestrator
	ctx        context.Context
	workCtx    context.Context
	graph      *domain.Graph
	order      []domain.InternedString
	position   map[domain.InternedString]int
	units      map[domain.InternedString]resource.Unit
	agreements domain.Agreements

	inDegree  map[domain.InternedString]int
	ready     []int
	active    int
	resultsCh chan result
	outcomes  []*domain.Outcome
}

func (o *Orchestrator) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	units map[domain.InternedString]resource.Unit,
	agreements domain.Agreements,
) *runState {
	order := graph.Order()
	state := &runState{
		o:          o,
		ctx:        ctx,
		workCtx:    context.WithoutCancel(ctx),
		graph:      graph,
		order:      order,
		position:   make(map[domain.InternedString]int, len(order)),
		units:      units,
		agreements: agreements,
		inDegree:   make(map[domain.InternedString]int, len(order)),
		resultsCh:  make(chan result, max(o.jobs, 1)),
		outcomes:   make([]*domain.Outcome, len(order)),
	}

	for i, label := range order {
		state.position[label] = i
		state.inDegree[label] = len(graph.Dependencies(label))
		if state.inDegree[label] == 0 {
			state.ready = append(state.ready, i)
		}
	}
	return state
}

func (state *runState) cancelled() bool {
	return state.ctx.Err() != nil
}

func (state *runState) isDone() bool {
	return state.active == 0 && (len(state.ready) == 0 || state.cancelled())
}

func (state *runState) runLoop() {
	for !state.isDone() {
		state.schedule()
		if state.isDone() {
			break
		}

		done := state.ctx.Done()
		if state.cancelled() {
			done = nil
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
		}
	}
}

// schedule starts ready resources, earliest in build order first, so a single worker
// processes resources exactly in build order.
func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.o.jobs && !state.cancelled() {
		idx := state.ready[0]
		state.ready = state.ready[1:]
		state.active++

		u := state.units[state.order[idx]]
		go func() {
			state.resultsCh <- result{index: idx, outcome: state.o.process(state.workCtx, u, state.agreements)}
		}()
	}
}

func (state *runState) handleResult(res result) {
	state.active--
	state.outcomes[res.index] = &res.outcome
	label := state.order[res.index]

	if res.outcome.State != domain.StateInstalled {
		state.skipDependents(label, res.outcome.State)
		return
	}

	for _, dep := range state.graph.Dependents(label) {
		if state.outcomes[state.position[dep]] != nil {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.enqueue(state.position[dep])
		}
	}
}

// skipDependents marks every transitive dependent of label as skipped.
func (state *runState) skipDependents(label domain.InternedString, cause domain.State) {
	for _, dep := range state.graph.Dependents(label) {
		idx := state.position[dep]
		if state.outcomes[idx] != nil {
			continue
		}
		state.outcomes[idx] = state.skipped(dep, domain.FailureDependency,
			fmt.Sprintf("dependency %s %s", label, cause))
		state.skipDependents(dep, domain.StateSkipped)
	}
}

func (state *runState) enqueue(idx int) {
	pos, _ := slices.BinarySearch(state.ready, idx)
	state.ready = slices.Insert(state.ready, pos, idx)
}

func (state *runState) skipped(label domain.InternedString, failure domain.FailureKind, reason string) *domain.Outcome {
	lc := domain.NewLifecycle(label)
	_ = lc.Advance(domain.StateSkipped)
	u := state.units[label]
	return &domain.Outcome{
		Label:   label.String(),
		Kind:    u.Resource().Kind,
		State:   lc.State(),
		Failure: failure,
		Reason:  reason,
	}
}

// report fills in resources that never started and returns the outcomes in build order.
func (state *runState) report() *domain.OutcomeReport {
	entries := make([]domain.Outcome, len(state.order))
	for i, label := range state.order {
		if state.outcomes[i] == nil {
			state.outcomes[i] = state.skipped(label, domain.FailureCancelled, domain.ErrBuildCancelled.Error())
		}
		entries[i] = *state.outcomes[i]
	}
	return domain.NewOutcomeReport(entries, state.cancelled())
}

package service

import (
	"context"
	"fmt"

	"dailyflow/internal/model"
	pkgLog "dailyflow/pkg/log"
)

// DependencyGraph decides whether a task is unblocked and maintains the
// predecessor -> successor edges.
type DependencyGraph struct {
	store TaskStore
	l     pkgLog.Logger
}

func NewDependencyGraph(store TaskStore, l pkgLog.Logger) *DependencyGraph {
	return &DependencyGraph{store: store, l: l}
}

// CanStart reports whether every predecessor of taskID is completed.
//
// When the store cannot answer, CanStart returns true: a storage outage must
// never lock the user out of completing work. The failure is logged.
func (g *DependencyGraph) CanStart(ctx context.Context, taskID uint) bool {
	n, err := g.store.CountIncompletePredecessors(ctx, taskID)
	if err != nil {
		g.l.Warnf(ctx, "dependency check for task %d failed, allowing completion: %v", taskID, err)
		return true
	}
	return n == 0
}

// AddEdge records that successorID depends on predecessorID. Self edges and
// duplicates are ignored; an edge closing a cycle is rejected with ErrDependencyCycle.
func (g *DependencyGraph) AddEdge(ctx context.Context, predecessorID, successorID uint) error {
	if predecessorID == successorID {
		return nil
	}

	deps, err := g.store.ListDependencies(ctx)
	if err != nil {
		return fmt.Errorf("add dependency: %w", err)
	}

	successors := make(map[uint][]uint)
	for _, d := range deps {
		if d.PredecessorID == predecessorID && d.SuccessorID == successorID {
			return nil
		}
		successors[d.PredecessorID] = append(successors[d.PredecessorID], d.SuccessorID)
	}

	if reachable(successors, successorID, predecessorID) {
		return fmt.Errorf("add dependency %d->%d: %w", predecessorID, successorID, ErrDependencyCycle)
	}

	return g.store.AddDependency(ctx, predecessorID, successorID)
}

func (g *DependencyGraph) RemoveEdge(ctx context.Context, predecessorID, successorID uint) error {
	return g.store.RemoveDependency(ctx, predecessorID, successorID)
}

// Predecessors lists the tasks taskID waits on.
func (g *DependencyGraph) Predecessors(ctx context.Context, taskID uint) ([]uint, error) {
	deps, err := g.store.ListDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predecessors of %d: %w", taskID, err)
	}
	var out []uint
	for _, d := range deps {
		if d.SuccessorID == taskID {
			out = append(out, d.PredecessorID)
		}
	}
	return out, nil
}

// Blocked returns the ids of pending tasks that still wait on an unfinished predecessor.
func (g *DependencyGraph) Blocked(tasks []model.Task, deps []model.TaskDependency) map[uint]bool {
	status := make(map[uint]model.Status, len(tasks))
	for _, t := range tasks {
		status[t.ID] = t.Status
	}
	blocked := make(map[uint]bool)
	for _, d := range deps {
		st, ok := status[d.PredecessorID]
		if ok && st != model.StatusCompleted && status[d.SuccessorID] != model.StatusCompleted {
			blocked[d.SuccessorID] = true
		}
	}
	return blocked
}

// reachable walks successor edges breadth first from 'from' looking for 'to'.
func reachable(successors map[uint][]uint, from, to uint) bool {
	seen := map[uint]bool{from: true}
	queue := []uint{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, next := range successors[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

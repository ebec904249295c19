package operations

import (
	"fmt"
	"sync"
)

// Registry holds the registered steps and answers dependency questions
// about them. Registration order breaks ties when two steps could run
// in either order.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
		order: make([]string, 0),
	}
}

// Register adds a step. IDs must be unique and non-empty.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step %q already registered", id)
	}
	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a step by ID.
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, fmt.Errorf("step %q not found", id)
	}
	return step, nil
}

// Has reports whether a step is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.steps[id]
	return exists
}

// List returns all steps in registration order.
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// ListIDs returns all step IDs in registration order.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered steps.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// DependencyOrder returns the steps topologically sorted so every step
// comes after all of its dependencies. Steps with no ordering between
// them keep registration order.
func (r *Registry) DependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dependents := make(map[string][]string, len(r.steps))
	inDegree := make(map[string]int, len(r.steps))
	for id := range r.steps {
		inDegree[id] = 0
	}
	for id, step := range r.steps {
		for _, dep := range step.Dependencies() {
			if _, exists := r.steps[dep]; !exists {
				return nil, fmt.Errorf("step %q depends on unregistered step %q", id, dep)
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	queue := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	ordered := make([]Step, 0, len(r.steps))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, r.steps[current])

		released := make(map[string]bool)
		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				released[dependent] = true
			}
		}
		// Enqueue released steps in registration order so runs are
		// deterministic.
		for _, id := range r.order {
			if released[id] {
				queue = append(queue, id)
			}
		}
	}

	if len(ordered) != len(r.steps) {
		return nil, fmt.Errorf("dependency cycle detected among registered steps")
	}
	return ordered, nil
}

// ValidateDependencies checks that every declared dependency exists and
// that the graph has no cycles.
func (r *Registry) ValidateDependencies() error {
	_, err := r.DependencyOrder()
	return err
}

// Dependents returns the steps that list the given step as a dependency.
func (r *Registry) Dependents(stepID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dependents []Step
	for _, id := range r.order {
		step := r.steps[id]
		for _, dep := range step.Dependencies() {
			if dep == stepID {
				dependents = append(dependents, step)
				break
			}
		}
	}
	return dependents
}

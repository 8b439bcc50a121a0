// Package kb is the in-memory catalog of named scenarios and the outcomes
// of runs against them. It is safe for concurrent use and preserves
// insertion order so listings are stable.
package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/signalsfoundry/intercept-simulator/sim"
)

var (
	// ErrScenarioExists is returned when adding a name already in the catalog.
	ErrScenarioExists = errors.New("scenario already exists")
	// ErrScenarioNotFound is returned for an unknown scenario name.
	ErrScenarioNotFound = errors.New("scenario not found")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventScenarioAdded EventType = iota
	EventScenarioRemoved
	EventRunRecorded
)

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type     EventType
	Scenario string
	// Report is set for EventRunRecorded.
	Report sim.RunReport
}

// Catalog is an insertion-ordered, thread-safe store of scenarios keyed by
// name. It also implements sim.RunRecorder, keeping the latest report per
// (scenario, law).
type Catalog struct {
	mu sync.RWMutex

	scenarios *orderedmap.OrderedMap[string, *sim.Scenario]
	results   *orderedmap.OrderedMap[resultKey, sim.RunReport]

	subs   *orderedmap.OrderedMap[int, func(Event)]
	nextID int
}

type resultKey struct {
	scenario string
	law      string
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		scenarios: orderedmap.NewOrderedMap[string, *sim.Scenario](),
		results:   orderedmap.NewOrderedMap[resultKey, sim.RunReport](),
		subs:      orderedmap.NewOrderedMap[int, func(Event)](),
	}
}

// AddScenario stores s under its name.
func (c *Catalog) AddScenario(s *sim.Scenario) error {
	if s == nil {
		return fmt.Errorf("AddScenario: nil scenario")
	}
	c.mu.Lock()
	if _, exists := c.scenarios.Get(s.Name()); exists {
		c.mu.Unlock()
		return fmt.Errorf("scenario %q: %w", s.Name(), ErrScenarioExists)
	}
	c.scenarios.Set(s.Name(), s)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventScenarioAdded, Scenario: s.Name()})
	return nil
}

// AddScenarios adds the whole batch or nothing. It fails with
// ErrScenarioExists if any name is already in the catalog or appears twice
// in the batch; the check and the inserts happen under one lock.
func (c *Catalog) AddScenarios(scenarios ...*sim.Scenario) error {
	c.mu.Lock()
	batch := make(map[string]struct{}, len(scenarios))
	for _, s := range scenarios {
		if s == nil {
			c.mu.Unlock()
			return fmt.Errorf("AddScenarios: nil scenario")
		}
		_, inBatch := batch[s.Name()]
		if _, exists := c.scenarios.Get(s.Name()); exists || inBatch {
			c.mu.Unlock()
			return fmt.Errorf("scenario %q: %w", s.Name(), ErrScenarioExists)
		}
		batch[s.Name()] = struct{}{}
	}
	for _, s := range scenarios {
		c.scenarios.Set(s.Name(), s)
	}
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, s := range scenarios {
		notify(subs, Event{Type: EventScenarioAdded, Scenario: s.Name()})
	}
	return nil
}

// GetScenario returns the named scenario.
func (c *Catalog) GetScenario(name string) (*sim.Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scenarios.Get(name)
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", name, ErrScenarioNotFound)
	}
	return s, nil
}

// RemoveScenario deletes the named scenario and any results recorded
// against it.
func (c *Catalog) RemoveScenario(name string) error {
	c.mu.Lock()
	if !c.scenarios.Delete(name) {
		c.mu.Unlock()
		return fmt.Errorf("scenario %q: %w", name, ErrScenarioNotFound)
	}
	var stale []resultKey
	for el := c.results.Front(); el != nil; el = el.Next() {
		if el.Key.scenario == name {
			stale = append(stale, el.Key)
		}
	}
	for _, k := range stale {
		c.results.Delete(k)
	}
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventScenarioRemoved, Scenario: name})
	return nil
}

// ListScenarios returns a snapshot in insertion order.
func (c *Catalog) ListScenarios() []*sim.Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*sim.Scenario, 0, c.scenarios.Len())
	for el := c.scenarios.Front(); el != nil; el = el.Next() {
		res = append(res, el.Value)
	}
	return res
}

// Len is the number of scenarios.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenarios.Len()
}

// RecordRun keeps r as the latest result for its scenario and law.
// Implements sim.RunRecorder.
func (c *Catalog) RecordRun(r sim.RunReport) {
	c.mu.Lock()
	key := resultKey{scenario: r.Scenario, law: r.Law}
	// re-insert so the most recent run sorts last
	c.results.Delete(key)
	c.results.Set(key, r)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventRunRecorded, Scenario: r.Scenario, Report: r})
}

// Results returns the latest report per (scenario, law), oldest first.
// An empty scenario name returns every result.
func (c *Catalog) Results(scenario string) []sim.RunReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var res []sim.RunReport
	for el := c.results.Front(); el != nil; el = el.Next() {
		if scenario == "" || el.Key.scenario == scenario {
			res = append(res, el.Value)
		}
	}
	return res
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function; calling it more than once is harmless.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs.Set(id, fn)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs.Delete(id)
	}
}

// snapshotSubs must be called with c.mu held.
func (c *Catalog) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, c.subs.Len())
	for el := c.subs.Front(); el != nil; el = el.Next() {
		subs = append(subs, el.Value)
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the catalog.
func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

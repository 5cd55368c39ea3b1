package planner

import (
	"fmt"
	"time"
)

type CycleState string

const (
	StateIdle             CycleState = "idle"
	StateSubmitted        CycleState = "submitted"
	StateAwaitingResponse CycleState = "awaiting_response"
	StateParsed           CycleState = "parsed"
	StateParseFailed      CycleState = "parse_failed"
	StateGenerationFailed CycleState = "generation_failed"
	StateCancelled        CycleState = "cancelled"
)

var cycleTransitions = map[CycleState][]CycleState{
	StateIdle:             {StateSubmitted},
	StateSubmitted:        {StateAwaitingResponse, StateGenerationFailed, StateCancelled},
	StateAwaitingResponse: {StateParsed, StateParseFailed, StateGenerationFailed, StateCancelled},
	StateParsed:           {StateSubmitted},
	StateParseFailed:      {StateSubmitted},
	StateGenerationFailed: {StateSubmitted},
	StateCancelled:        {StateSubmitted},
}

// InFlight reports whether a cycle in this state still owns a pending call.
func (s CycleState) InFlight() bool {
	return s == StateSubmitted || s == StateAwaitingResponse
}

func (s CycleState) Terminal() bool {
	switch s {
	case StateParsed, StateParseFailed, StateGenerationFailed, StateCancelled:
		return true
	}
	return false
}

// Cycle tracks one submit-generate-parse sequence. A new submission starts
// a new Cycle; nothing loops back on its own.
type Cycle struct {
	ID          string     `json:"id"`
	State       CycleState `json:"state"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func NewCycle(id string) *Cycle {
	return &Cycle{ID: id, State: StateIdle}
}

// Advance moves the cycle to next, stamping submission and completion
// times. Illegal transitions are rejected and leave the cycle unchanged.
func (c *Cycle) Advance(next CycleState, now time.Time) error {
	allowed := false
	for _, candidate := range cycleTransitions[c.State] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("illegal plan cycle transition %s -> %s", c.State, next)
	}

	c.State = next
	switch {
	case next == StateSubmitted:
		submitted := now
		c.SubmittedAt = &submitted
		c.FinishedAt = nil
		c.Error = ""
	case next.Terminal():
		finished := now
		c.FinishedAt = &finished
	}
	return nil
}

// Fail moves the cycle to a failed terminal state and records detail.
func (c *Cycle) Fail(state CycleState, detail string, now time.Time) error {
	if err := c.Advance(state, now); err != nil {
		return err
	}
	c.Error = detail
	return nil
}

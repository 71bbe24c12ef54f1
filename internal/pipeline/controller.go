package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"rapidproto/internal/generation"
	"rapidproto/internal/refinement"
	"rapidproto/internal/types"
)

var (
	// ErrInvalidTransition is returned for a completion that does not match
	// the current phase or carries an unacceptable payload.
	ErrInvalidTransition = errors.New("pipeline: invalid transition")
	// ErrStageBusy is returned by Begin while another invocation for the
	// same session is unresolved.
	ErrStageBusy = errors.New("pipeline: stage invocation already in flight")
	// ErrStaleResult marks a result whose session was reset while it ran.
	ErrStaleResult = errors.New("pipeline: result belongs to a previous session")
)

// Ticket tags one stage invocation with the session it was launched for.
type Ticket struct {
	SessionID string
	Stage     generation.Stage
	seq       uint64
}

// Controller owns the five-phase state machine. Transitions are forward
// only; the sole way back is Reset, which starts a new session.
type Controller struct {
	mu       sync.Mutex
	state    SessionState
	inflight *Ticket
	seq      uint64
	newID    func() string
}

func NewSessionID() string { return "session-" + uuid.NewString() }

// NewController starts a session at the input phase. A nil newID uses
// NewSessionID.
func NewController(newID func() string) *Controller {
	if newID == nil {
		newID = NewSessionID
	}
	return &Controller{state: newSessionState(newID()), newID: newID}
}

// State returns a deep copy of the session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SessionID
}

func (c *Controller) Current() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentPhase
}

// CompletePhase records payload for phase and advances by one. It fails with
// ErrInvalidTransition when phase is not current, when the session already
// finished, when payload has the wrong type, or when a refinement outcome
// still has unanswered required questions.
func (c *Controller) CompletePhase(phase Phase, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Finished {
		return fmt.Errorf("%w: session %s finished, only reset is accepted", ErrInvalidTransition, c.state.SessionID)
	}
	if phase != c.state.CurrentPhase {
		return fmt.Errorf("%w: completing %s while current phase is %s", ErrInvalidTransition, phase, c.state.CurrentPhase)
	}
	data, err := capturePayload(phase, payload)
	if err != nil {
		return err
	}
	switch v := data.(type) {
	case types.ExpandedSpecification:
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
	case types.RefinementOutcome:
		if !refinement.CanProceed(v.Questions, v.Answers) {
			return fmt.Errorf("%w: required questions are unanswered", ErrInvalidTransition)
		}
	}
	c.state.Phases[phase.String()] = PhaseRecord{Completed: true, Data: data}
	if c.state.CurrentPhase < PhaseFeedback {
		c.state.CurrentPhase++
	} else {
		c.state.Finished = true
	}
	return nil
}

// Reset discards every phase record and starts a new session. In-flight
// invocations keep running; their results fail Finish with ErrStaleResult.
func (c *Controller) Reset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = newSessionState(c.newID())
	c.inflight = nil
	return c.state.SessionID
}

// Begin reserves the current session for one stage invocation.
func (c *Controller) Begin(stage generation.Stage) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.begin(stage)
}

// BeginIn is Begin bound to sessionID: it fails with ErrStaleResult when the
// session was reset after the caller read its inputs.
func (c *Controller) BeginIn(sessionID string, stage generation.Stage) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.state.SessionID {
		return Ticket{}, fmt.Errorf("%w: %s requested for %s", ErrStaleResult, stage, sessionID)
	}
	return c.begin(stage)
}

func (c *Controller) begin(stage generation.Stage) (Ticket, error) {
	if c.inflight != nil {
		return Ticket{}, fmt.Errorf("%w: %s", ErrStageBusy, c.inflight.Stage)
	}
	c.seq++
	t := Ticket{SessionID: c.state.SessionID, Stage: stage, seq: c.seq}
	c.inflight = &t
	return t, nil
}

// Finish releases t. It returns ErrStaleResult when the session changed
// since Begin; the caller must then drop the result.
func (c *Controller) Finish(t Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.SessionID != c.state.SessionID {
		return fmt.Errorf("%w: %s launched in %s", ErrStaleResult, t.Stage, t.SessionID)
	}
	if c.inflight != nil && c.inflight.seq == t.seq {
		c.inflight = nil
	}
	return nil
}

// Busy reports whether a stage invocation is unresolved.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

package profile

import "sync"

// SelectState is the selector's position in the two-click cycle.
type SelectState int

const (
	AwaitingA SelectState = iota
	AwaitingB
)

func (s SelectState) String() string {
	if s == AwaitingB {
		return "awaiting_b"
	}
	return "awaiting_a"
}

// Selector turns a stream of clicks into segment endpoints. The first click
// sets A, the second sets B, the third sets A again and so on. Re-selecting
// A leaves the previous B in place.
//
// Every Select raises a one-shot flag that TakeJustSelected reports and
// clears. Selector is safe for concurrent use.
type Selector struct {
	mu           sync.Mutex
	state        SelectState
	endpoints    Endpoints
	justSelected bool
}

// NewSelector returns a selector awaiting its first endpoint.
func NewSelector() *Selector {
	return &Selector{}
}

// Select records p as the next endpoint and returns the state after the
// transition.
func (s *Selector) Select(p Point) SelectState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case AwaitingA:
		s.endpoints.A = p
		s.endpoints.HasA = true
		s.state = AwaitingB
	case AwaitingB:
		s.endpoints.B = p
		s.endpoints.HasB = true
		s.state = AwaitingA
	}
	s.justSelected = true
	return s.state
}

// TakeJustSelected reports whether an endpoint changed since the last call,
// and clears the flag.
func (s *Selector) TakeJustSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.justSelected
	s.justSelected = false
	return v
}

// Reset drops both endpoints and returns to AwaitingA.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = AwaitingA
	s.endpoints = Endpoints{}
	s.justSelected = false
}

// State returns the current state.
func (s *Selector) State() SelectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Endpoints returns a copy of the selected endpoints.
func (s *Selector) Endpoints() Endpoints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints
}

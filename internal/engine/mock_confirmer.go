package engine

import (
	"context"
	"sync"

	"github.com/joshsymonds/ledgerflow/internal/common"
	"github.com/joshsymonds/ledgerflow/internal/model"
)

// MockConfirmer is a scripted test implementation of the Confirmer
// interface. Responses are keyed by the candidate's description; rows
// with no scripted response are accepted unchanged.
type MockConfirmer struct {
	responses map[string]model.Entry
	discards  map[string]bool
	calls     []ConfirmRequest
	mu        sync.Mutex
}

// NewMockConfirmer creates a new mock confirmer.
func NewMockConfirmer() *MockConfirmer {
	return &MockConfirmer{
		responses: make(map[string]model.Entry),
		discards:  make(map[string]bool),
	}
}

// Confirm records the request and replays any scripted response.
func (m *MockConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (model.Entry, error) {
	select {
	case <-ctx.Done():
		return model.Entry{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	desc := req.Candidate.Description
	if m.discards[desc] {
		return model.Entry{}, common.ErrEntryDiscarded
	}
	if corrected, ok := m.responses[desc]; ok {
		return corrected, nil
	}
	return req.Candidate, nil
}

// SetResponse scripts a corrected entry for candidates with the given
// description.
func (m *MockConfirmer) SetResponse(description string, corrected model.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[description] = corrected
}

// SetDiscard scripts a discard for candidates with the given
// description.
func (m *MockConfirmer) SetDiscard(description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discards[description] = true
}

// Calls returns a copy of all recorded confirmation requests.
func (m *MockConfirmer) Calls() []ConfirmRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ConfirmRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of confirmation requests received.
func (m *MockConfirmer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

package testutil

import (
	"context"
	"sync"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// RecordingResponder captures every reply a handler produces.
type RecordingResponder struct {
	mu sync.Mutex

	Responses     []domain.Reply
	Updates       []domain.Reply
	Followups     []domain.Reply
	Edits         []domain.Reply
	Deferred      bool
	DeferredEphem bool
	DeferredEdit  bool

	// Err, when set, is returned from every call.
	Err error
}

func (r *RecordingResponder) Respond(_ context.Context, reply domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, reply)
	return r.Err
}

func (r *RecordingResponder) Update(_ context.Context, reply domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates = append(r.Updates, reply)
	return r.Err
}

func (r *RecordingResponder) Defer(_ context.Context, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deferred = true
	r.DeferredEphem = ephemeral
	return r.Err
}

func (r *RecordingResponder) DeferUpdate(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeferredEdit = true
	return r.Err
}

func (r *RecordingResponder) Followup(_ context.Context, reply domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Followups = append(r.Followups, reply)
	return r.Err
}

func (r *RecordingResponder) EditOriginal(_ context.Context, reply domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edits = append(r.Edits, reply)
	return r.Err
}

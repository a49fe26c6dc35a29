package usecase

import (
	"context"
	"sync"
)

// StorePrompter shows the store change confirmation. It is called once per
// conflict and must eventually make the UI call Accept or Cancel on the
// request, possibly before returning.
type StorePrompter interface {
	PromptStoreChange(req *ConflictRequest)
}

// ConflictRequest is a pending "replace the cart of store A with store B"
// question. The first call to Accept or Cancel decides it; later calls
// return false.
type ConflictRequest struct {
	CurrentStoreID   string
	CurrentStoreName string
	TargetStoreID    string

	once     sync.Once
	decision chan bool
}

func newConflictRequest(currentID, currentName, targetID string) *ConflictRequest {
	return &ConflictRequest{
		CurrentStoreID:   currentID,
		CurrentStoreName: currentName,
		TargetStoreID:    targetID,
		decision:         make(chan bool, 1),
	}
}

func (r *ConflictRequest) Accept() bool {
	return r.resolve(true)
}

func (r *ConflictRequest) Cancel() bool {
	return r.resolve(false)
}

func (r *ConflictRequest) resolve(accepted bool) bool {
	resolved := false
	r.once.Do(func() {
		r.decision <- accepted
		resolved = true
	})
	return resolved
}

// ConflictGate holds the only conflict request that may exist at a time.
type ConflictGate struct {
	mu      sync.Mutex
	pending *ConflictRequest
}

func (g *ConflictGate) open(currentID, currentName, targetID string) (*ConflictRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return nil, ErrConflictPending
	}
	g.pending = newConflictRequest(currentID, currentName, targetID)

	return g.pending, nil
}

func (g *ConflictGate) clear(r *ConflictRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == r {
		g.pending = nil
	}
}

// wait blocks until the request is decided. When ctx ends first the request
// is cancelled, unless the user decided in the meantime.
func (g *ConflictGate) wait(ctx context.Context, r *ConflictRequest) (bool, error) {
	select {
	case accepted := <-r.decision:
		return accepted, nil
	case <-ctx.Done():
		if r.Cancel() {
			return false, ctx.Err()
		}
		return <-r.decision, nil
	}
}

// dismiss cancels the pending request, if any.
func (g *ConflictGate) dismiss() {
	g.mu.Lock()
	r := g.pending
	g.mu.Unlock()

	if r != nil {
		r.Cancel()
	}
}

func (g *ConflictGate) Pending() *ConflictRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

func (g *ConflictGate) Prompt() ConflictPrompt {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return ConflictPrompt{}
	}
	return ConflictPrompt{
		Visible:          true,
		CurrentStoreID:   g.pending.CurrentStoreID,
		CurrentStoreName: g.pending.CurrentStoreName,
		TargetStoreID:    g.pending.TargetStoreID,
	}
}

package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/internal/journal"
	"github.com/Dmitrij-bot/storefront/internal/repository"
	"github.com/Dmitrij-bot/storefront/pkg/metrics"
)

const (
	opEnsureStore  = "ensure_store_context"
	opAddProduct   = "add_product"
	opIncrement    = "increment_product"
	opDecrement    = "decrement_product"
	opRemove       = "remove_product"
	opCheckout     = "checkout"
	opFetchCart    = "fetch_cart"
	opSyncOpenCart = "sync_open_cart"
)

var _ Interface = (*CartManager)(nil)

type Option func(*CartManager)

func WithJournal(r Recorder) Option {
	return func(m *CartManager) { m.journal = r }
}

func WithPrompter(p StorePrompter) Option {
	return func(m *CartManager) { m.prompter = p }
}

func WithMetrics(cm *metrics.ClientMetrics) Option {
	return func(m *CartManager) { m.metrics = cm }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *CartManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// CartManager owns the cart mirror and the single active store rule.
//
// Backend mutations and reconciliations run one at a time through slot.
// generation changes whenever the active store changes or the cart is reset;
// a server cart fetched under an older generation is thrown away, so a
// request still in flight for an abandoned store cannot bring it back.
// A pending store change prompt never holds the slot.
type CartManager struct {
	backend  Backend
	journal  Recorder
	prompter StorePrompter
	metrics  *metrics.ClientMetrics
	logger   *zap.Logger
	gate     ConflictGate

	slot chan struct{}

	mu          sync.RWMutex
	state       CartState
	generation  uint64
	subscribers map[int]func(CartState)
	nextSubID   int
}

func New(backend Backend, opts ...Option) *CartManager {
	m := &CartManager{
		backend:     backend,
		logger:      zap.NewNop(),
		slot:        make(chan struct{}, 1),
		subscribers: make(map[int]func(CartState)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureStoreContext makes storeID the active store. It returns true at once
// when no store is active, when storeID already is, or when the current cart
// is empty. Otherwise it asks the user and blocks until the request is
// accepted (the cart is emptied and storeID adopted) or cancelled (false,
// nothing changes). It never calls the backend, but leaving the active store
// waits for a mutation in flight so its lines are known.
func (m *CartManager) EnsureStoreContext(ctx context.Context, storeID string) (bool, error) {
	if storeID == "" {
		return false, validationError(opEnsureStore, "store id is required")
	}
	return m.ensureStore(ctx, storeID, "")
}

func (m *CartManager) ensureStore(ctx context.Context, storeID, storeName string) (bool, error) {
	d := m.decideStore(storeID, storeName, false)
	if d.needsSlot {
		// Leaving the active store depends on its lines, so wait until no
		// mutation is between its backend call and its refetch.
		if err := m.acquire(ctx); err != nil {
			return false, err
		}
		d = m.decideStore(storeID, storeName, true)
		m.release()
	}

	if d.conflict {
		return m.resolveConflict(ctx, d.current, storeID, storeName, d.gen)
	}

	if d.event != "" {
		m.logger.Info("active store changed", zap.String("store_id", storeID), zap.String("event", d.event))
		m.record(ctx, journal.Event{Type: d.event, StoreID: storeID, BadgeCount: d.snapshot.BadgeCount})
	}

	return true, nil
}

type storeDecision struct {
	event     string
	conflict  bool
	needsSlot bool
	current   CartState
	gen       uint64
	snapshot  CartState
}

// decideStore applies the store rules to the mirror. Without the slot it
// only settles the cases that do not look at the lines.
func (m *CartManager) decideStore(storeID, storeName string, holdsSlot bool) storeDecision {
	var d storeDecision

	d.snapshot = m.update(func(s *CartState) bool {
		switch {
		case s.ActiveStoreID == "":
			d.event = journal.EventStoreAdopted
		case s.ActiveStoreID == storeID:
			if storeName != "" && s.ActiveStoreName == "" {
				s.ActiveStoreName = storeName
				return true
			}
			return false
		case !holdsSlot:
			d.needsSlot = true
			return false
		case len(s.Lines) == 0:
			d.event = journal.EventStoreSwitched
		default:
			d.conflict = true
			d.current = CartState{ActiveStoreID: s.ActiveStoreID, ActiveStoreName: s.ActiveStoreName}
			d.gen = m.generation
			return false
		}

		*s = CartState{ActiveStoreID: storeID, ActiveStoreName: storeName}
		m.generation++
		return true
	})

	return d
}

func (m *CartManager) resolveConflict(ctx context.Context, current CartState, storeID, storeName string, gen uint64) (bool, error) {
	req, err := m.gate.open(current.ActiveStoreID, current.ActiveStoreName, storeID)
	if err != nil {
		m.metrics.ObserveConflict(metrics.ConflictOverlapping)
		return false, stateError(opEnsureStore, err)
	}
	defer m.gate.clear(req)

	m.logger.Info("store change waits for confirmation",
		zap.String("store_id", current.ActiveStoreID),
		zap.String("target_store_id", storeID),
	)

	if m.prompter != nil {
		m.prompter.PromptStoreChange(req)
	}

	accepted, err := m.gate.wait(ctx, req)
	if err != nil {
		m.metrics.ObserveConflict(metrics.ConflictAbandoned)
		return false, err
	}
	if !accepted {
		m.metrics.ObserveConflict(metrics.ConflictCancelled)
		return false, nil
	}

	stale := false
	snapshot := m.update(func(s *CartState) bool {
		if m.generation != gen {
			stale = true
			return false
		}
		*s = CartState{ActiveStoreID: storeID, ActiveStoreName: storeName}
		m.generation++
		return true
	})
	if stale {
		m.metrics.ObserveConflict(metrics.ConflictAbandoned)
		return false, stateError(opEnsureStore, ErrStoreChanged)
	}

	m.metrics.ObserveConflict(metrics.ConflictAccepted)
	m.logger.Info("active store replaced", zap.String("store_id", storeID), zap.String("previous_store_id", current.ActiveStoreID))
	m.record(ctx, journal.Event{Type: journal.EventStoreSwitched, StoreID: storeID, BadgeCount: snapshot.BadgeCount})

	return true, nil
}

// AddProductCart adds quantity units of a product. A cancelled store change
// aborts it without error.
func (m *CartManager) AddProductCart(ctx context.Context, req AddToCartRequest) (err error) {
	defer func() { m.observe(opAddProduct, err) }()

	switch {
	case req.ProductID == "":
		return validationError(opAddProduct, "product id is required")
	case req.StoreID == "":
		return validationError(opAddProduct, "store id is required")
	case req.Quantity <= 0:
		return validationError(opAddProduct, "quantity must be positive")
	}

	ok, err := m.ensureStore(ctx, req.StoreID, req.StoreName)
	if err != nil || !ok {
		return err
	}

	state, err := m.mutate(ctx, opAddProduct, req.StoreID, func(ctx context.Context) error {
		_, err := m.backend.AddItemToCart(ctx, repository.AddItemToCartRequest{
			StoreID:   req.StoreID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		})
		return err
	})
	if err != nil {
		return err
	}

	m.record(ctx, journal.Event{
		Type:       journal.EventItemAdded,
		StoreID:    req.StoreID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		BadgeCount: state.BadgeCount,
	})

	return nil
}

func (m *CartManager) IncrementProduct(ctx context.Context, productID string) error {
	return m.itemAction(ctx, opIncrement, journal.EventItemIncremented, productID, func(ctx context.Context, storeID string) error {
		_, err := m.backend.IncrementItem(ctx, repository.CartItemActionRequest{StoreID: storeID, ProductID: productID})
		return err
	})
}

// DecrementProduct lowers the quantity by one. Whether a line at quantity 1
// is removed is up to the backend.
func (m *CartManager) DecrementProduct(ctx context.Context, productID string) error {
	return m.itemAction(ctx, opDecrement, journal.EventItemDecremented, productID, func(ctx context.Context, storeID string) error {
		_, err := m.backend.DecrementItem(ctx, repository.CartItemActionRequest{StoreID: storeID, ProductID: productID})
		return err
	})
}

func (m *CartManager) RemoveProductCart(ctx context.Context, productID string) error {
	return m.itemAction(ctx, opRemove, journal.EventItemRemoved, productID, func(ctx context.Context, storeID string) error {
		_, err := m.backend.DeleteItemFromCart(ctx, repository.DeleteItemFromCartRequest{StoreID: storeID, ProductID: productID})
		return err
	})
}

func (m *CartManager) itemAction(ctx context.Context, op, eventType, productID string, call func(ctx context.Context, storeID string) error) (err error) {
	defer func() { m.observe(op, err) }()

	storeID := m.activeStoreID()
	if storeID == "" {
		return stateError(op, ErrNoActiveStore)
	}
	if productID == "" {
		return validationError(op, "product id is required")
	}

	state, err := m.mutate(ctx, op, storeID, func(ctx context.Context) error {
		return call(ctx, storeID)
	})
	if err != nil {
		return err
	}

	m.record(ctx, journal.Event{
		Type:       eventType,
		StoreID:    storeID,
		ProductID:  productID,
		Quantity:   quantityOf(state, productID),
		BadgeCount: state.BadgeCount,
	})

	return nil
}

// Checkout places the order for the active store. The mirror is cleared as
// soon as the backend accepts it and then reconciled with the open cart the
// backend reports.
func (m *CartManager) Checkout(ctx context.Context) (resp CheckoutResponse, err error) {
	defer func() { m.observe(opCheckout, err) }()

	storeID := m.activeStoreID()
	if storeID == "" {
		return resp, stateError(opCheckout, ErrNoActiveStore)
	}

	if err := m.acquire(ctx); err != nil {
		return resp, err
	}
	defer m.release()

	if m.activeStoreID() != storeID {
		return resp, stateError(opCheckout, ErrStoreChanged)
	}

	out, err := m.backend.Checkout(ctx, repository.CheckoutRequest{StoreID: storeID})
	if err != nil {
		return resp, checkoutError(backendError(opCheckout, err))
	}
	resp.OrderID = out.OrderID

	m.logger.Info("checkout completed", zap.String("store_id", storeID), zap.String("order_id", resp.OrderID))

	gen := m.clear()
	m.record(ctx, journal.Event{Type: journal.EventCheckoutComplete, StoreID: storeID, OrderID: resp.OrderID})

	// The order exists at this point; a failed reconciliation leaves the
	// cleared mirror in place.
	if _, err := m.reconcileOpenCart(ctx, opCheckout, gen); err != nil {
		m.logger.Warn("failed to reconcile cart after checkout", zap.String("store_id", storeID), zap.Error(err))
	}

	return resp, nil
}

// FetchCart replaces the mirror with the server cart of storeID. The store
// is only adopted when that needs no confirmation.
func (m *CartManager) FetchCart(ctx context.Context, storeID string) (err error) {
	defer func() { m.observe(opFetchCart, err) }()

	if storeID == "" {
		return validationError(opFetchCart, "store id is required")
	}

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	var (
		event    string
		mismatch bool
		gen      uint64
	)
	snapshot := m.update(func(s *CartState) bool {
		switch {
		case s.ActiveStoreID == storeID:
			gen = m.generation
			return false
		case s.ActiveStoreID == "":
			event = journal.EventStoreAdopted
		case len(s.Lines) == 0:
			event = journal.EventStoreSwitched
		default:
			mismatch = true
			return false
		}

		*s = CartState{ActiveStoreID: storeID}
		m.generation++
		gen = m.generation
		return true
	})
	if mismatch {
		return stateError(opFetchCart, ErrStoreMismatch)
	}
	if event != "" {
		m.record(ctx, journal.Event{Type: event, StoreID: storeID, BadgeCount: snapshot.BadgeCount})
	}

	_, err = m.refetch(ctx, opFetchCart, storeID, gen)
	return err
}

// SyncOpenCart adopts whatever cart the backend reports as open, or resets
// the mirror when there is none.
func (m *CartManager) SyncOpenCart(ctx context.Context) (err error) {
	defer func() { m.observe(opSyncOpenCart, err) }()

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	_, err = m.reconcileOpenCart(ctx, opSyncOpenCart, gen)
	return err
}

// ResetCartContext empties the mirror and forgets the active store. A store
// change waiting for confirmation is cancelled.
func (m *CartManager) ResetCartContext() {
	var previous string
	m.update(func(s *CartState) bool {
		previous = s.ActiveStoreID
		changed := s.HasActiveStore() || len(s.Lines) > 0
		*s = CartState{}
		m.generation++
		return changed
	})

	m.gate.dismiss()

	if previous != "" {
		m.logger.Info("cart context reset", zap.String("store_id", previous))
		m.record(context.Background(), journal.Event{Type: journal.EventCartReset, StoreID: previous})
	}
}

func (m *CartManager) Snapshot() CartState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Subscribe registers fn to receive every new state. fn runs on the
// goroutine that changed the state and must not block.
func (m *CartManager) Subscribe(fn func(CartState)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *CartManager) Conflict() ConflictPrompt {
	return m.gate.Prompt()
}

// PendingConflict returns the request a polling UI should resolve, or nil.
func (m *CartManager) PendingConflict() *ConflictRequest {
	return m.gate.Pending()
}

// mutate runs call for storeID while holding the slot, then replaces the
// mirror with the server cart. Nothing local changes when call fails.
func (m *CartManager) mutate(ctx context.Context, op, storeID string, call func(ctx context.Context) error) (CartState, error) {
	if err := m.acquire(ctx); err != nil {
		return CartState{}, err
	}
	defer m.release()

	m.mu.RLock()
	active, gen := m.state.ActiveStoreID, m.generation
	m.mu.RUnlock()

	if active != storeID {
		return CartState{}, stateError(op, ErrStoreChanged)
	}

	if err := call(ctx); err != nil {
		return CartState{}, backendError(op, err)
	}

	return m.refetch(ctx, op, storeID, gen)
}

func (m *CartManager) refetch(ctx context.Context, op, storeID string, gen uint64) (CartState, error) {
	resp, err := m.backend.GetCart(ctx, repository.GetCartRequest{StoreID: storeID})
	if err != nil {
		return CartState{}, backendError(op, err)
	}
	lines := toCartLines(resp.CartItems)

	stale := false
	snapshot := m.update(func(s *CartState) bool {
		if m.generation != gen || s.ActiveStoreID != storeID {
			stale = true
			return false
		}
		s.Lines = lines
		s.BadgeCount = badgeCount(lines)
		return true
	})
	if stale {
		m.logger.Debug("discarding cart of an inactive store", zap.String("op", op), zap.String("store_id", storeID))
		return CartState{}, stateError(op, ErrStoreChanged)
	}

	return snapshot, nil
}

// reconcileOpenCart asks the backend which cart is open and makes the mirror
// match it. gen is the generation the caller expects to still be current.
func (m *CartManager) reconcileOpenCart(ctx context.Context, op string, gen uint64) (CartState, error) {
	open, err := m.backend.GetOpenCart(ctx, repository.GetOpenCartRequest{})
	if err != nil {
		return CartState{}, backendError(op, err)
	}

	stale := false
	snapshot := m.update(func(s *CartState) bool {
		if m.generation != gen {
			stale = true
			return false
		}
		if !open.Found {
			changed := s.HasActiveStore() || len(s.Lines) > 0
			if changed {
				*s = CartState{}
				m.generation++
			}
			return changed
		}

		*s = CartState{ActiveStoreID: open.StoreID, ActiveStoreName: open.StoreName}
		m.generation++
		gen = m.generation
		return true
	})
	if stale {
		return CartState{}, stateError(op, ErrStoreChanged)
	}
	if !open.Found {
		return snapshot, nil
	}

	m.logger.Info("open cart adopted", zap.String("store_id", open.StoreID), zap.Int("items_count", open.ItemsCount))
	m.record(ctx, journal.Event{Type: journal.EventStoreAdopted, StoreID: open.StoreID})

	return m.refetch(ctx, op, open.StoreID, gen)
}

// clear empties the mirror and returns the new generation.
func (m *CartManager) clear() uint64 {
	var gen uint64
	m.update(func(s *CartState) bool {
		changed := s.HasActiveStore() || len(s.Lines) > 0
		*s = CartState{}
		m.generation++
		gen = m.generation
		return changed
	})
	return gen
}

// update applies fn under the state lock and notifies subscribers when fn
// reports a change.
func (m *CartManager) update(fn func(s *CartState) bool) CartState {
	m.mu.Lock()
	changed := fn(&m.state)
	snapshot := m.state.clone()
	var subs []func(CartState)
	if changed {
		subs = make([]func(CartState), 0, len(m.subscribers))
		for _, sub := range m.subscribers {
			subs = append(subs, sub)
		}
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot.clone())
	}

	return snapshot
}

func (m *CartManager) activeStoreID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ActiveStoreID
}

func (m *CartManager) acquire(ctx context.Context) error {
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *CartManager) release() {
	<-m.slot
}

func (m *CartManager) record(ctx context.Context, event journal.Event) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(context.WithoutCancel(ctx), event); err != nil {
		m.logger.Warn("failed to record cart event",
			zap.String("event", event.Type),
			zap.String("store_id", event.StoreID),
			zap.Error(err),
		)
	}
}

func (m *CartManager) observe(op string, err error) {
	m.metrics.ObserveOperation(op, err)
	if err != nil {
		m.logger.Warn("cart operation failed", zap.String("op", op), zap.Error(err))
	}
}

func toCartLines(items []repository.CartItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, CartLine{
			ProductID:          item.ProductID,
			Name:               item.Name,
			ImageURL:           item.ImageURL,
			UnitPriceCents:     item.UnitPriceCents,
			Quantity:           item.Quantity,
			CashbackPercentage: item.CashbackPercentage,
			Stock:              item.Stock,
		})
	}
	return lines
}

func badgeCount(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

func quantityOf(state CartState, productID string) int {
	for _, l := range state.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

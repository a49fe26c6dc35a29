package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Dmitrij-bot/storefront/internal/journal"
	"github.com/Dmitrij-bot/storefront/internal/repository"
	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
)

const (
	callGetCart     = "GetCart"
	callGetOpenCart = "GetOpenCart"
	callAddItem     = "AddItemToCart"
	callIncrement   = "IncrementItem"
	callDecrement   = "DecrementItem"
	callDelete      = "DeleteItemFromCart"
	callCheckout    = "Checkout"
)

type fakeProduct struct {
	name       string
	priceCents int64
	stock      int
	cashback   float64
}

// fakeBackend is an in-memory server cart with the same rules as the real
// backend: stock is enforced with 409 and a decrement to zero removes the line.
type fakeBackend struct {
	mu sync.Mutex

	products   map[string]map[string]fakeProduct
	storeNames map[string]string
	carts      map[string][]repository.CartItem
	openStore  string
	orders     int

	// openAfterCheckout is reported as the open cart right after a checkout.
	openAfterCheckout string

	calls map[string]int
	errs  map[string]error

	onGetCart func(storeID string)

	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products:   make(map[string]map[string]fakeProduct),
		storeNames: make(map[string]string),
		carts:      make(map[string][]repository.CartItem),
		calls:      make(map[string]int),
		errs:       make(map[string]error),
	}
}

func (f *fakeBackend) addProduct(storeID, productID string, priceCents int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.products[storeID] == nil {
		f.products[storeID] = make(map[string]fakeProduct)
	}
	f.products[storeID][productID] = fakeProduct{
		name:       "Product " + productID,
		priceCents: priceCents,
		stock:      stock,
		cashback:   5,
	}
}

func (f *fakeBackend) setStoreName(storeID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeNames[storeID] = name
}

// seedCart puts a line straight into the server cart, bypassing stock checks.
func (f *fakeBackend) seedCart(storeID, productID string, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.carts[storeID] = append(f.carts[storeID], repository.CartItem{ProductID: productID, Quantity: quantity})
	f.openStore = storeID
}

func (f *fakeBackend) failNext(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[call] = err
}

func (f *fakeBackend) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeBackend) maxConcurrentMutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeBackend) enter(call string) error {
	f.mu.Lock()
	f.calls[call]++
	err := f.errs[call]
	delete(f.errs, call)
	f.mu.Unlock()
	return err
}

func (f *fakeBackend) beginMutation() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
}

func (f *fakeBackend) endMutation() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func statusError(status int, message string) error {
	return &httpclient.StatusError{Route: "fake", StatusCode: status, Message: message}
}

func (f *fakeBackend) GetCart(ctx context.Context, req repository.GetCartRequest) (resp repository.GetCartResponse, err error) {
	if err := f.enter(callGetCart); err != nil {
		return resp, err
	}

	f.mu.Lock()
	hook := f.onGetCart
	f.mu.Unlock()
	if hook != nil {
		hook(req.StoreID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	resp.CartItems = []repository.CartItem{}
	for _, item := range f.carts[req.StoreID] {
		p := f.products[req.StoreID][item.ProductID]
		resp.CartItems = append(resp.CartItems, repository.CartItem{
			ProductID:          item.ProductID,
			Name:               p.name,
			ImageURL:           repository.PlaceholderImage,
			UnitPriceCents:     p.priceCents,
			CashbackPercentage: p.cashback,
			Quantity:           item.Quantity,
			Stock:              p.stock,
		})
	}

	return resp, nil
}

func (f *fakeBackend) GetOpenCart(ctx context.Context, req repository.GetOpenCartRequest) (resp repository.GetOpenCartResponse, err error) {
	if err := f.enter(callGetOpenCart); err != nil {
		return resp, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.carts[f.openStore]
	if f.openStore == "" || len(items) == 0 {
		return resp, nil
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}

	return repository.GetOpenCartResponse{
		Found:      true,
		StoreID:    f.openStore,
		StoreName:  f.storeNames[f.openStore],
		ItemsCount: count,
	}, nil
}

func (f *fakeBackend) AddItemToCart(ctx context.Context, req repository.AddItemToCartRequest) (resp repository.AddItemToCartResponse, err error) {
	if err := f.enter(callAddItem); err != nil {
		return resp, err
	}
	f.beginMutation()
	defer f.endMutation()

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[req.StoreID][req.ProductID]
	if !ok {
		return resp, statusError(http.StatusNotFound, "product not found")
	}

	items := f.carts[req.StoreID]
	for i := range items {
		if items[i].ProductID == req.ProductID {
			if items[i].Quantity+req.Quantity > p.stock {
				return resp, statusError(http.StatusConflict, "insufficient stock")
			}
			items[i].Quantity += req.Quantity
			f.openStore = req.StoreID
			return repository.AddItemToCartResponse{Success: true}, nil
		}
	}

	if req.Quantity > p.stock {
		return resp, statusError(http.StatusConflict, "insufficient stock")
	}
	f.carts[req.StoreID] = append(items, repository.CartItem{ProductID: req.ProductID, Quantity: req.Quantity})
	f.openStore = req.StoreID

	return repository.AddItemToCartResponse{Success: true}, nil
}

func (f *fakeBackend) IncrementItem(ctx context.Context, req repository.CartItemActionRequest) (resp repository.CartItemActionResponse, err error) {
	if err := f.enter(callIncrement); err != nil {
		return resp, err
	}
	f.beginMutation()
	defer f.endMutation()

	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.carts[req.StoreID]
	for i := range items {
		if items[i].ProductID == req.ProductID {
			if items[i].Quantity+1 > f.products[req.StoreID][req.ProductID].stock {
				return resp, statusError(http.StatusConflict, "insufficient stock")
			}
			items[i].Quantity++
			return repository.CartItemActionResponse{Success: true}, nil
		}
	}

	return resp, statusError(http.StatusNotFound, "item not found")
}

func (f *fakeBackend) DecrementItem(ctx context.Context, req repository.CartItemActionRequest) (resp repository.CartItemActionResponse, err error) {
	if err := f.enter(callDecrement); err != nil {
		return resp, err
	}
	f.beginMutation()
	defer f.endMutation()

	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.carts[req.StoreID]
	for i := range items {
		if items[i].ProductID == req.ProductID {
			items[i].Quantity--
			if items[i].Quantity <= 0 {
				f.carts[req.StoreID] = append(items[:i:i], items[i+1:]...)
			}
			return repository.CartItemActionResponse{Success: true}, nil
		}
	}

	return resp, statusError(http.StatusNotFound, "item not found")
}

func (f *fakeBackend) DeleteItemFromCart(ctx context.Context, req repository.DeleteItemFromCartRequest) (resp repository.DeleteItemFromCartResponse, err error) {
	if err := f.enter(callDelete); err != nil {
		return resp, err
	}
	f.beginMutation()
	defer f.endMutation()

	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.carts[req.StoreID]
	for i := range items {
		if items[i].ProductID == req.ProductID {
			f.carts[req.StoreID] = append(items[:i:i], items[i+1:]...)
			return repository.DeleteItemFromCartResponse{Success: true}, nil
		}
	}

	return resp, statusError(http.StatusNotFound, "item not found")
}

func (f *fakeBackend) Checkout(ctx context.Context, req repository.CheckoutRequest) (resp repository.CheckoutResponse, err error) {
	if err := f.enter(callCheckout); err != nil {
		return resp, err
	}
	f.beginMutation()
	defer f.endMutation()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.carts[req.StoreID]) == 0 {
		return resp, statusError(http.StatusBadRequest, "cart is empty")
	}

	f.orders++
	delete(f.carts, req.StoreID)
	if f.openStore == req.StoreID {
		f.openStore = ""
	}
	if f.openAfterCheckout != "" {
		f.openStore = f.openAfterCheckout
	}

	return repository.CheckoutResponse{OrderID: fmt.Sprintf("order-%d", f.orders)}, nil
}

// answeringPrompter resolves every conflict right away.
type answeringPrompter struct {
	mu       sync.Mutex
	accept   bool
	requests []*ConflictRequest
}

func (p *answeringPrompter) PromptStoreChange(req *ConflictRequest) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	accept := p.accept
	p.mu.Unlock()

	if accept {
		req.Accept()
		return
	}
	req.Cancel()
}

func (p *answeringPrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// holdingPrompter hands the request to the test and leaves it open.
type holdingPrompter struct {
	requests chan *ConflictRequest
}

func newHoldingPrompter() *holdingPrompter {
	return &holdingPrompter{requests: make(chan *ConflictRequest, 4)}
}

func (p *holdingPrompter) PromptStoreChange(req *ConflictRequest) {
	p.requests <- req
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []journal.Event
	err    error
}

func (r *fakeRecorder) Record(ctx context.Context, event journal.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

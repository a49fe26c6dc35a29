package usecase

import (
	"context"

	"github.com/Dmitrij-bot/storefront/internal/journal"
	"github.com/Dmitrij-bot/storefront/internal/repository"
)

// Interface is what the UI layer may do with the cart. Views read state
// through Snapshot, Subscribe and Conflict and never change it directly.
type Interface interface {
	EnsureStoreContext(ctx context.Context, storeID string) (bool, error)
	AddProductCart(ctx context.Context, req AddToCartRequest) error
	IncrementProduct(ctx context.Context, productID string) error
	DecrementProduct(ctx context.Context, productID string) error
	RemoveProductCart(ctx context.Context, productID string) error
	Checkout(ctx context.Context) (CheckoutResponse, error)
	FetchCart(ctx context.Context, storeID string) error
	SyncOpenCart(ctx context.Context) error
	ResetCartContext()

	Snapshot() CartState
	Subscribe(fn func(CartState)) (unsubscribe func())
	Conflict() ConflictPrompt
	PendingConflict() *ConflictRequest
}

// Backend is the subset of the REST repository the cart depends on.
type Backend interface {
	GetCart(ctx context.Context, req repository.GetCartRequest) (resp repository.GetCartResponse, err error)
	GetOpenCart(ctx context.Context, req repository.GetOpenCartRequest) (resp repository.GetOpenCartResponse, err error)
	AddItemToCart(ctx context.Context, req repository.AddItemToCartRequest) (resp repository.AddItemToCartResponse, err error)
	IncrementItem(ctx context.Context, req repository.CartItemActionRequest) (resp repository.CartItemActionResponse, err error)
	DecrementItem(ctx context.Context, req repository.CartItemActionRequest) (resp repository.CartItemActionResponse, err error)
	DeleteItemFromCart(ctx context.Context, req repository.DeleteItemFromCartRequest) (resp repository.DeleteItemFromCartResponse, err error)
	Checkout(ctx context.Context, req repository.CheckoutRequest) (resp repository.CheckoutResponse, err error)
}

// Recorder stores cart activity events.
type Recorder interface {
	Record(ctx context.Context, event journal.Event) error
}

package journal

import "time"

// Cart activity event types.
const (
	EventStoreAdopted     = "store_adopted"
	EventStoreSwitched    = "store_switched"
	EventItemAdded        = "item_added"
	EventItemIncremented  = "item_incremented"
	EventItemDecremented  = "item_decremented"
	EventItemRemoved      = "item_removed"
	EventCheckoutComplete = "checkout_completed"
	EventCartReset        = "cart_reset"
)

// Event is one row of the cart activity outbox. BadgeCount is the badge the
// client showed right after the operation.
type Event struct {
	ID         string    `db:"id" json:"id"`
	Type       string    `db:"event_type" json:"type"`
	StoreID    string    `db:"store_id" json:"storeId"`
	ProductID  string    `db:"product_id" json:"productId,omitempty"`
	Quantity   int       `db:"quantity" json:"quantity,omitempty"`
	OrderID    string    `db:"order_id" json:"orderId,omitempty"`
	BadgeCount int       `db:"badge_count" json:"badgeCount"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
}

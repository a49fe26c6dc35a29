package repository

import "time"

type GetCartRequest struct {
	StoreID string
}

// CartItem is one server cart line, already normalized: prices are integer
// cents and the image is an absolute URL.
type CartItem struct {
	ProductID          string
	Name               string
	ImageURL           string
	UnitPriceCents     int64
	CashbackPercentage float64
	Quantity           int
	Stock              int
}

type GetCartResponse struct {
	CartItems []CartItem
}

type GetOpenCartRequest struct{}

// GetOpenCartResponse reports the cart the backend considers open for the
// user, whichever store it belongs to. Found is false when there is none.
type GetOpenCartResponse struct {
	Found      bool
	StoreID    string
	StoreName  string
	ItemsCount int
}

type AddItemToCartRequest struct {
	StoreID   string `json:"storeId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type AddItemToCartResponse struct {
	Success bool
}

type CartItemActionRequest struct {
	StoreID   string `json:"storeId"`
	ProductID string `json:"productId"`
}

type CartItemActionResponse struct {
	Success bool
}

type DeleteItemFromCartRequest struct {
	StoreID   string
	ProductID string
}

type DeleteItemFromCartResponse struct {
	Success bool
}

type CheckoutRequest struct {
	StoreID string `json:"storeId"`
}

type CheckoutResponse struct {
	OrderID string
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SignInResponse struct {
	User         User
	AccessToken  string
	RefreshToken string
}

type SetUserCityRequest struct {
	CityID string `json:"cityId"`
}

type SetUserCityResponse struct {
	Success bool
}

// Order statuses reported by the backend.
const (
	OrderPending   = "PENDING"
	OrderValidated = "VALIDATED"
	OrderExpired   = "EXPIRED"
)

type OrderItem struct {
	ID                 string
	ProductID          string
	Name               string
	ImageURL           string
	PriceCents         int64
	CashbackPercentage float64
	Quantity           int
}

type Order struct {
	ID                   string
	StoreID              string
	StoreName            string
	TotalAmountCents     int64
	DiscountAppliedCents int64
	CashbackAmountCents  int64
	Status               string
	CreatedAt            time.Time
	ValidatedAt          *time.Time
	QRCodeURL            string
	Items                []OrderItem
}

type ListOrderHistoryRequest struct{}

type ListOrderHistoryResponse struct {
	Orders []Order
}

type GetOrderRequest struct {
	OrderID string
}

type GetOrderResponse struct {
	Order Order
}

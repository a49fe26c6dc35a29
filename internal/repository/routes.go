package repository

// Route names label metrics and logs; paths are the REST endpoints behind them.
const (
	RouteGetCart       = "cart.get"
	RouteGetOpenCart   = "cart.open"
	RouteAddItem       = "cart.items.add"
	RouteIncrementItem = "cart.items.increment"
	RouteDecrementItem = "cart.items.decrement"
	RouteRemoveItem    = "cart.items.remove"
	RouteCheckout      = "cart.checkout"
	RouteSignIn        = "sessions.create"
	RouteSetUserCity   = "users.city"
	RouteOrderHistory  = "orders.history"
	RouteOrderByID     = "orders.get"
)

const (
	GetCartPath       = "/cart/store/%s"
	GetOpenCartPath   = "/cart/open"
	AddItemPath       = "/cart/items"
	IncrementItemPath = "/cart/items/increment"
	DecrementItemPath = "/cart/items/decrement"
	RemoveItemPath    = "/cart/items/%s"
	CheckoutPath      = "/cart/checkout"
	SignInPath        = "/sessions"
	SetUserCityPath   = "/users/city"
	OrderHistoryPath  = "/orders/history"
	OrderByIDPath     = "/orders/%s"

	UploadsPath      = "/uploads/"
	PlaceholderImage = "https://via.placeholder.com/150"
)

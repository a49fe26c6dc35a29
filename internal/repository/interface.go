package repository

import "context"

type Interface interface {
	GetCart(ctx context.Context, req GetCartRequest) (resp GetCartResponse, err error)
	GetOpenCart(ctx context.Context, req GetOpenCartRequest) (resp GetOpenCartResponse, err error)
	AddItemToCart(ctx context.Context, req AddItemToCartRequest) (resp AddItemToCartResponse, err error)
	IncrementItem(ctx context.Context, req CartItemActionRequest) (resp CartItemActionResponse, err error)
	DecrementItem(ctx context.Context, req CartItemActionRequest) (resp CartItemActionResponse, err error)
	DeleteItemFromCart(ctx context.Context, req DeleteItemFromCartRequest) (resp DeleteItemFromCartResponse, err error)
	Checkout(ctx context.Context, req CheckoutRequest) (resp CheckoutResponse, err error)

	SignIn(ctx context.Context, req SignInRequest) (resp SignInResponse, err error)
	SetUserCity(ctx context.Context, req SetUserCityRequest) (resp SetUserCityResponse, err error)

	ListOrderHistory(ctx context.Context, req ListOrderHistoryRequest) (resp ListOrderHistoryResponse, err error)
	GetOrder(ctx context.Context, req GetOrderRequest) (resp GetOrderResponse, err error)
}

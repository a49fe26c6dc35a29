package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
)

// Doer is the part of the shared HTTP client the repository needs.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) ([]byte, error)
	BaseURL() string
}

// BackendRepository talks to the storefront REST backend.
type BackendRepository struct {
	client Doer
}

func NewBackendRepository(client Doer) *BackendRepository {
	return &BackendRepository{
		client: client,
	}
}

func (r *BackendRepository) GetCart(ctx context.Context, req GetCartRequest) (resp GetCartResponse, err error) {
	if req.StoreID == "" {
		return resp, errors.New("store id cannot be empty")
	}

	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Route:  RouteGetCart,
		Path:   fmt.Sprintf(GetCartPath, url.PathEscape(req.StoreID)),
	})
	if err != nil {
		return resp, fmt.Errorf("failed to get cart for store %s: %w", req.StoreID, err)
	}

	resp.CartItems = parseCartItems(r.client.BaseURL(), body)

	return resp, nil
}

func (r *BackendRepository) GetOpenCart(ctx context.Context, req GetOpenCartRequest) (resp GetOpenCartResponse, err error) {
	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Route:  RouteGetOpenCart,
		Path:   GetOpenCartPath,
	})
	if err != nil {
		return resp, fmt.Errorf("failed to get open cart: %w", err)
	}

	return parseOpenCart(body), nil
}

func (r *BackendRepository) AddItemToCart(ctx context.Context, req AddItemToCartRequest) (resp AddItemToCartResponse, err error) {
	_, err = r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Route:  RouteAddItem,
		Path:   AddItemPath,
		Body:   req,
	})
	if err != nil {
		return AddItemToCartResponse{Success: false}, fmt.Errorf("failed to add item to cart: %w", err)
	}

	return AddItemToCartResponse{Success: true}, nil
}

func (r *BackendRepository) IncrementItem(ctx context.Context, req CartItemActionRequest) (resp CartItemActionResponse, err error) {
	_, err = r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Route:  RouteIncrementItem,
		Path:   IncrementItemPath,
		Body:   req,
	})
	if err != nil {
		return CartItemActionResponse{Success: false}, fmt.Errorf("failed to increment item: %w", err)
	}

	return CartItemActionResponse{Success: true}, nil
}

func (r *BackendRepository) DecrementItem(ctx context.Context, req CartItemActionRequest) (resp CartItemActionResponse, err error) {
	_, err = r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Route:  RouteDecrementItem,
		Path:   DecrementItemPath,
		Body:   req,
	})
	if err != nil {
		return CartItemActionResponse{Success: false}, fmt.Errorf("failed to decrement item: %w", err)
	}

	return CartItemActionResponse{Success: true}, nil
}

func (r *BackendRepository) DeleteItemFromCart(ctx context.Context, req DeleteItemFromCartRequest) (resp DeleteItemFromCartResponse, err error) {
	_, err = r.client.Do(ctx, httpclient.Request{
		Method: http.MethodDelete,
		Route:  RouteRemoveItem,
		Path:   fmt.Sprintf(RemoveItemPath, url.PathEscape(req.ProductID)),
		Body:   map[string]string{"storeId": req.StoreID},
	})
	if err != nil {
		return DeleteItemFromCartResponse{Success: false}, fmt.Errorf("failed to delete item from cart: %w", err)
	}

	return DeleteItemFromCartResponse{Success: true}, nil
}

func (r *BackendRepository) Checkout(ctx context.Context, req CheckoutRequest) (resp CheckoutResponse, err error) {
	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Route:  RouteCheckout,
		Path:   CheckoutPath,
		Body:   req,
	})
	if err != nil {
		return resp, fmt.Errorf("failed to checkout cart: %w", err)
	}

	resp.OrderID = firstString(gjson.GetBytes(body, "orderId"), gjson.GetBytes(body, "order.id"), gjson.GetBytes(body, "id"))

	return resp, nil
}

func (r *BackendRepository) SignIn(ctx context.Context, req SignInRequest) (resp SignInResponse, err error) {
	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Route:  RouteSignIn,
		Path:   SignInPath,
		Body:   req,
	})
	if err != nil {
		return resp, fmt.Errorf("failed to sign in: %w", err)
	}

	var payload struct {
		User         *User  `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return resp, fmt.Errorf("failed to decode session: %w", err)
	}
	if payload.User == nil || payload.AccessToken == "" || payload.RefreshToken == "" {
		return resp, errors.New("invalid session returned by the backend")
	}

	return SignInResponse{
		User:         *payload.User,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, nil
}

func (r *BackendRepository) SetUserCity(ctx context.Context, req SetUserCityRequest) (resp SetUserCityResponse, err error) {
	if req.CityID == "" {
		return resp, errors.New("city id cannot be empty")
	}

	_, err = r.client.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Route:  RouteSetUserCity,
		Path:   SetUserCityPath,
		Body:   req,
	})
	if err != nil {
		return SetUserCityResponse{Success: false}, fmt.Errorf("failed to set user city: %w", err)
	}

	return SetUserCityResponse{Success: true}, nil
}

func (r *BackendRepository) ListOrderHistory(ctx context.Context, req ListOrderHistoryRequest) (resp ListOrderHistoryResponse, err error) {
	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Route:  RouteOrderHistory,
		Path:   OrderHistoryPath,
	})
	if err != nil {
		return resp, fmt.Errorf("failed to list order history: %w", err)
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		list = list.Get("orders")
	}

	resp.Orders = []Order{}
	list.ForEach(func(_, o gjson.Result) bool {
		resp.Orders = append(resp.Orders, parseOrder(r.client.BaseURL(), o))
		return true
	})

	return resp, nil
}

func (r *BackendRepository) GetOrder(ctx context.Context, req GetOrderRequest) (resp GetOrderResponse, err error) {
	if req.OrderID == "" {
		return resp, errors.New("order id cannot be empty")
	}

	body, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Route:  RouteOrderByID,
		Path:   fmt.Sprintf(OrderByIDPath, url.PathEscape(req.OrderID)),
	})
	if err != nil {
		return resp, fmt.Errorf("failed to get order %s: %w", req.OrderID, err)
	}

	resp.Order = parseOrder(r.client.BaseURL(), gjson.ParseBytes(body))

	return resp, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
)

func TestBackendError_Classification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    ErrorKind
		message string
	}{
		{"bad request", statusError(http.StatusBadRequest, "quantity must be positive"), KindValidation, "quantity must be positive"},
		{"conflict", statusError(http.StatusConflict, "insufficient stock"), KindValidation, "insufficient stock"},
		{"unprocessable without message", statusError(http.StatusUnprocessableEntity, ""), KindValidation, "Unprocessable Entity"},
		{"unauthorized", statusError(http.StatusUnauthorized, "expired"), KindNetwork, "session expired"},
		{"server error", statusError(http.StatusBadGateway, "upstream"), KindNetwork, "backend returned 502"},
		{"transport", &httpclient.TransportError{Route: "cart.get", Err: errors.New("refused")}, KindNetwork, "backend is unreachable"},
		{"cancelled", &httpclient.TransportError{Route: "cart.get", Err: context.Canceled}, KindNetwork, "request cancelled"},
		{"wrapped", fmt.Errorf("failed to add item to cart: %w", statusError(http.StatusConflict, "insufficient stock")), KindValidation, "insufficient stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := backendError(opAddProduct, tt.err)

			var cartErr *CartError
			require.True(t, errors.As(err, &cartErr))
			assert.Equal(t, tt.kind, cartErr.Kind)
			assert.Equal(t, tt.message, cartErr.Message)
			assert.Equal(t, opAddProduct, cartErr.Op)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCartError_Kinds(t *testing.T) {
	err := checkoutError(backendError(opCheckout, statusError(http.StatusConflict, "store is closed")))

	assert.True(t, IsCheckout(err))
	assert.True(t, IsValidation(err))
	assert.False(t, IsNetwork(err))
	assert.False(t, IsState(err))
	assert.Equal(t, "checkout CHECKOUT: store is closed", err.Error())

	state := stateError(opIncrement, ErrNoActiveStore)
	assert.True(t, IsState(state))
	assert.ErrorIs(t, state, ErrNoActiveStore)
	assert.Equal(t, "increment_product STATE: no active store", state.Error())

	assert.False(t, IsNetwork(nil))
	assert.False(t, IsState(errors.New("plain")))
	assert.Equal(t, "UNKNOWN", ErrorKind(0).String())
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindValidation
	KindState
	KindCheckout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NETWORK"
	case KindValidation:
		return "VALIDATION"
	case KindState:
		return "STATE"
	case KindCheckout:
		return "CHECKOUT"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNoActiveStore   = errors.New("no active store")
	ErrConflictPending = errors.New("another store change is waiting for confirmation")
	ErrStoreChanged    = errors.New("active store changed while the operation was running")
	ErrStoreMismatch   = errors.New("cart belongs to another store")
)

// CartError is returned by every cart operation that fails. Message is safe
// to show to the user.
type CartError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *CartError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
}

func (e *CartError) Unwrap() error {
	return e.Err
}

func IsNetwork(err error) bool { return hasKind(err, KindNetwork) }
func IsValidation(err error) bool { return hasKind(err, KindValidation) }
func IsState(err error) bool { return hasKind(err, KindState) }
func IsCheckout(err error) bool { return hasKind(err, KindCheckout) }

// hasKind walks the whole chain, so a checkout error caused by a network
// failure reports both kinds.
func hasKind(err error, kind ErrorKind) bool {
	for err != nil {
		var ce *CartError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Kind == kind {
			return true
		}
		err = ce.Err
	}
	return false
}

func stateError(op string, err error) error {
	return &CartError{Kind: KindState, Op: op, Message: err.Error(), Err: err}
}

func validationError(op, message string) error {
	return &CartError{Kind: KindValidation, Op: op, Message: message}
}

// backendError classifies a failed backend call. Rejections the user can act
// on (bad input, stock exceeded) are validation errors, anything else is a
// network error.
func backendError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CartError{Kind: KindNetwork, Op: op, Message: "request cancelled", Err: err}
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			msg := statusErr.Message
			if msg == "" {
				msg = http.StatusText(statusErr.StatusCode)
			}
			return &CartError{Kind: KindValidation, Op: op, Message: msg, Err: err}
		case http.StatusUnauthorized:
			return &CartError{Kind: KindNetwork, Op: op, Message: "session expired", Err: err}
		}
		return &CartError{Kind: KindNetwork, Op: op, Message: fmt.Sprintf("backend returned %d", statusErr.StatusCode), Err: err}
	}

	return &CartError{Kind: KindNetwork, Op: op, Message: "backend is unreachable", Err: err}
}

func checkoutError(cause error) error {
	msg := cause.Error()
	var ce *CartError
	if errors.As(cause, &ce) {
		msg = ce.Message
	}
	return &CartError{Kind: KindCheckout, Op: opCheckout, Message: msg, Err: cause}
}

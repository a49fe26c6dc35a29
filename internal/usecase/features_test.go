package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/Dmitrij-bot/storefront/internal/repository"
)

type cartTestContext struct {
	backend  *fakeBackend
	prompter *answeringPrompter
	manager  *CartManager
	states   []CartState
	order    CheckoutResponse
	calls    int
	err      error
}

func (c *cartTestContext) reset() {
	c.backend = newFakeBackend()
	c.prompter = &answeringPrompter{}
	c.manager = New(c.backend, WithPrompter(c.prompter))
	c.states = nil
	c.order = CheckoutResponse{}
	c.calls = 0
	c.err = nil
	c.manager.Subscribe(func(s CartState) { c.states = append(c.states, s) })
}

func (c *cartTestContext) storeSellsProduct(store, product, price string, stock int) error {
	cents, ok := repository.ParseCents(price)
	if !ok {
		return fmt.Errorf("bad price %q", price)
	}
	c.backend.addProduct(store, product, cents, stock)
	return nil
}

func (c *cartTestContext) theCartIsEmpty() error {
	c.manager.ResetCartContext()
	c.calls = c.backend.totalCalls()
	return nil
}

func (c *cartTestContext) theCartHolds(quantity int, product, store string) error {
	if err := c.manager.AddProductCart(context.Background(), AddToCartRequest{ProductID: product, StoreID: store, Quantity: quantity}); err != nil {
		return err
	}
	c.states = nil
	c.calls = c.backend.totalCalls()
	return nil
}

func (c *cartTestContext) iWillAcceptStoreChanges() error {
	c.prompter.accept = true
	return nil
}

func (c *cartTestContext) iWillCancelStoreChanges() error {
	c.prompter.accept = false
	return nil
}

func (c *cartTestContext) iAdd(quantity int, product, store string) error {
	c.err = c.manager.AddProductCart(context.Background(), AddToCartRequest{ProductID: product, StoreID: store, Quantity: quantity})
	return nil
}

func (c *cartTestContext) iIncrement(product string) error {
	c.err = c.manager.IncrementProduct(context.Background(), product)
	return nil
}

func (c *cartTestContext) iCheckOut() error {
	c.order, c.err = c.manager.Checkout(context.Background())
	return nil
}

func (c *cartTestContext) theCartContextIsReset() error {
	c.manager.ResetCartContext()
	return nil
}

func (c *cartTestContext) theActiveStoreIs(store string) error {
	if got := c.manager.Snapshot().ActiveStoreID; got != store {
		return fmt.Errorf("expected active store %q, got %q", store, got)
	}
	return nil
}

func (c *cartTestContext) noStoreIsActive() error {
	if state := c.manager.Snapshot(); state.HasActiveStore() || len(state.Lines) > 0 {
		return fmt.Errorf("expected an empty cart, got %+v", state)
	}
	return nil
}

func (c *cartTestContext) theCartHoldsOnly(quantity int, product string) error {
	lines := c.manager.Snapshot().Lines
	if len(lines) != 1 {
		return fmt.Errorf("expected one line, got %d", len(lines))
	}
	if lines[0].ProductID != product || lines[0].Quantity != quantity {
		return fmt.Errorf("expected %d of %s, got %d of %s", quantity, product, lines[0].Quantity, lines[0].ProductID)
	}
	return nil
}

func (c *cartTestContext) theBadgeShows(count int) error {
	if got := c.manager.Snapshot().BadgeCount; got != count {
		return fmt.Errorf("expected badge %d, got %d", count, got)
	}
	return nil
}

func (c *cartTestContext) noStoreChangeWasPrompted() error {
	return c.aStoreChangeWasPrompted(0)
}

func (c *cartTestContext) aStoreChangeWasPrompted(times int) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	if got := c.prompter.count(); got != times {
		return fmt.Errorf("expected %d prompts, got %d", times, got)
	}
	return nil
}

func (c *cartTestContext) theCartWasEmptyBeforeTheRefetch(store string) error {
	for _, s := range c.states {
		if s.ActiveStoreID == store && len(s.Lines) == 0 && s.BadgeCount == 0 {
			return nil
		}
	}
	return fmt.Errorf("no empty intermediate state for store %q in %+v", store, c.states)
}

func (c *cartTestContext) theOperationFailsWithAValidationError(message string) error {
	if !IsValidation(c.err) {
		return fmt.Errorf("expected validation error, got %v", c.err)
	}
	if !strings.Contains(c.err.Error(), message) {
		return fmt.Errorf("expected error to contain %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *cartTestContext) theOperationFailsWithAStateError() error {
	if !IsState(c.err) {
		return fmt.Errorf("expected state error, got %v", c.err)
	}
	return nil
}

func (c *cartTestContext) theBackendWasNotCalled() error {
	if got := c.backend.totalCalls(); got != c.calls {
		return fmt.Errorf("expected no backend calls, got %d", got-c.calls)
	}
	return nil
}

func (c *cartTestContext) anOrderWasPlaced() error {
	if c.err != nil {
		return fmt.Errorf("checkout failed: %w", c.err)
	}
	if c.order.OrderID == "" {
		return errors.New("expected an order id")
	}
	return nil
}

func InitializeCartScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^store "([^"]*)" sells product "([^"]*)" at ([\d.]+) with stock (\d+)$`, tc.storeSellsProduct)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart holds (\d+) of product "([^"]*)" from store "([^"]*)"$`, tc.theCartHolds)
	ctx.Step(`^I will accept store changes$`, tc.iWillAcceptStoreChanges)
	ctx.Step(`^I will cancel store changes$`, tc.iWillCancelStoreChanges)

	// When steps
	ctx.Step(`^I add (\d+) of product "([^"]*)" from store "([^"]*)"$`, tc.iAdd)
	ctx.Step(`^I increment product "([^"]*)"$`, tc.iIncrement)
	ctx.Step(`^I check out$`, tc.iCheckOut)
	ctx.Step(`^the cart context is reset$`, tc.theCartContextIsReset)

	// Then steps
	ctx.Step(`^the active store is "([^"]*)"$`, tc.theActiveStoreIs)
	ctx.Step(`^no store is active$`, tc.noStoreIsActive)
	ctx.Step(`^the cart holds (\d+) of product "([^"]*)"$`, tc.theCartHoldsOnly)
	ctx.Step(`^the badge shows (\d+)$`, tc.theBadgeShows)
	ctx.Step(`^no store change was prompted$`, tc.noStoreChangeWasPrompted)
	ctx.Step(`^a store change was prompted (\d+) times?$`, tc.aStoreChangeWasPrompted)
	ctx.Step(`^the cart was empty for store "([^"]*)" before the refetch$`, tc.theCartWasEmptyBeforeTheRefetch)
	ctx.Step(`^the operation fails with a validation error "([^"]*)"$`, tc.theOperationFailsWithAValidationError)
	ctx.Step(`^the operation fails with a state error$`, tc.theOperationFailsWithAStateError)
	ctx.Step(`^the backend was not called$`, tc.theBackendWasNotCalled)
	ctx.Step(`^an order was placed$`, tc.anOrderWasPlaced)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

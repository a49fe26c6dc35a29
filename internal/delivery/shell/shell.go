// Package shell is a line-oriented storefront client on top of the cart
// manager and the session.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/internal/preferences"
	"github.com/Dmitrij-bot/storefront/internal/repository"
	"github.com/Dmitrij-bot/storefront/internal/usecase"
)

type Sessions interface {
	SignIn(ctx context.Context, email, password string) (repository.User, error)
	SignOut()
	User() (repository.User, bool)
	SetCity(ctx context.Context, city preferences.City) error
	ClearCity(ctx context.Context) error
	CurrentCity(ctx context.Context) (preferences.City, bool, error)
}

type Orders interface {
	ListOrderHistory(ctx context.Context, req repository.ListOrderHistoryRequest) (resp repository.ListOrderHistoryResponse, err error)
	GetOrder(ctx context.Context, req repository.GetOrderRequest) (resp repository.GetOrderResponse, err error)
}

type usageError struct {
	usage string
}

func (e usageError) Error() string {
	return "usage: " + e.usage
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

type Shell struct {
	console  *Console
	cart     usecase.Interface
	sessions Sessions
	orders   Orders
	logger   *zap.Logger
	commands map[string]command
}

func New(console *Console, cart usecase.Interface, sessions Sessions, orders Orders, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Shell{
		console:  console,
		cart:     cart,
		sessions: sessions,
		orders:   orders,
		logger:   logger,
	}

	s.commands = map[string]command{
		"login":    {"login <email> <password>", "sign in and restore your open cart", s.login},
		"logout":   {"logout", "sign out and drop the cart", s.logout},
		"city":     {"city [clear | <id> <uf> <name...>]", "show, select or clear the city", s.city},
		"open":     {"open", "load the cart the backend has open for you", s.open},
		"cart":     {"cart [store]", "show the cart", s.showCart},
		"add":      {"add <store> <product> [qty]", "add a product to the cart", s.add},
		"inc":      {"inc <product>", "add one more unit", s.itemAction(cart.IncrementProduct)},
		"dec":      {"dec <product>", "remove one unit", s.itemAction(cart.DecrementProduct)},
		"rm":       {"rm <product>", "remove the product", s.itemAction(cart.RemoveProductCart)},
		"checkout": {"checkout", "place the order", s.checkout},
		"orders":   {"orders", "list your orders", s.listOrders},
		"order":    {"order <id>", "show one order", s.showOrder},
	}

	return s
}

// Run reads commands until quit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	s.console.Printf("storefront shell, type help for commands\n")

	for ctx.Err() == nil {
		s.console.Printf("> ")

		line, ok := s.console.ReadLine()
		if !ok {
			return s.console.Err()
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}

	return nil
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name := strings.ToLower(fields[0])
	switch name {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	}

	cmd, ok := s.commands[name]
	if !ok {
		s.console.Printf("unknown command %q, type help for commands\n", name)
		return false
	}

	if err := cmd.run(ctx, fields[1:]); err != nil {
		s.logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		s.notice(err)
	}

	return false
}

func (s *Shell) help() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := s.commands[name]
		s.console.Printf("  %-36s %s\n", cmd.usage, cmd.help)
	}
	s.console.Printf("  %-36s %s\n", "quit", "leave the shell")
}

// notice renders an error as a single line.
func (s *Shell) notice(err error) {
	var (
		ce    *usecase.CartError
		usage usageError
	)

	switch {
	case errors.As(err, &usage):
		s.console.Printf("%s\n", usage.Error())
	case errors.As(err, &ce):
		switch ce.Kind {
		case usecase.KindNetwork:
			s.console.Printf("! connection problem: %s\n", ce.Message)
		case usecase.KindCheckout:
			s.console.Printf("! checkout failed: %s\n", ce.Message)
		default:
			s.console.Printf("! %s\n", ce.Message)
		}
	default:
		s.console.Printf("! %v\n", err)
	}
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError{s.commands["login"].usage}
	}

	user, err := s.sessions.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	s.console.Printf("signed in as %s <%s>\n", user.Name, user.Email)
	if s.cart.Snapshot().HasActiveStore() {
		s.printCart(s.cart.Snapshot())
	}

	return nil
}

func (s *Shell) logout(ctx context.Context, args []string) error {
	s.sessions.SignOut()
	s.console.Printf("signed out\n")
	return nil
}

func (s *Shell) city(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		city, ok, err := s.sessions.CurrentCity(ctx)
		if err != nil {
			return err
		}
		if !ok {
			s.console.Printf("no city selected\n")
			return nil
		}
		s.console.Printf("%s - %s (%s)\n", city.Name, city.UF, city.ID)
		return nil
	case len(args) == 1 && args[0] == "clear":
		if err := s.sessions.ClearCity(ctx); err != nil {
			return err
		}
		s.console.Printf("city cleared\n")
		return nil
	case len(args) >= 3:
		city := preferences.City{ID: args[0], UF: strings.ToUpper(args[1]), Name: strings.Join(args[2:], " ")}
		if err := s.sessions.SetCity(ctx, city); err != nil {
			return err
		}
		s.console.Printf("city set to %s - %s, cart emptied\n", city.Name, city.UF)
		return nil
	}

	return usageError{s.commands["city"].usage}
}

func (s *Shell) open(ctx context.Context, args []string) error {
	if err := s.cart.SyncOpenCart(ctx); err != nil {
		return err
	}
	s.printCart(s.cart.Snapshot())
	return nil
}

func (s *Shell) showCart(ctx context.Context, args []string) error {
	storeID := s.cart.Snapshot().ActiveStoreID
	if len(args) > 0 {
		storeID = args[0]
	}
	if storeID == "" {
		s.console.Printf("cart is empty\n")
		return nil
	}

	if err := s.cart.FetchCart(ctx, storeID); err != nil {
		return err
	}
	s.printCart(s.cart.Snapshot())

	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageError{s.commands["add"].usage}
	}

	quantity := 1
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return usageError{s.commands["add"].usage}
		}
		quantity = n
	}

	err := s.cart.AddProductCart(ctx, usecase.AddToCartRequest{
		StoreID:   args[0],
		ProductID: args[1],
		Quantity:  quantity,
	})
	if err != nil {
		return err
	}

	state := s.cart.Snapshot()
	if state.ActiveStoreID != args[0] {
		s.console.Printf("kept your cart at %s\n", storeLabel(state))
		return nil
	}
	s.printCart(state)

	return nil
}

func (s *Shell) itemAction(action func(ctx context.Context, productID string) error) func(ctx context.Context, args []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return usageError{"<inc|dec|rm> <product>"}
		}
		if err := action(ctx, args[0]); err != nil {
			return err
		}
		s.printCart(s.cart.Snapshot())
		return nil
	}
}

func (s *Shell) checkout(ctx context.Context, args []string) error {
	resp, err := s.cart.Checkout(ctx)
	if err != nil {
		return err
	}

	if resp.OrderID != "" {
		s.console.Printf("order %s placed\n", resp.OrderID)
	} else {
		s.console.Printf("order placed\n")
	}

	return nil
}

func (s *Shell) listOrders(ctx context.Context, args []string) error {
	resp, err := s.orders.ListOrderHistory(ctx, repository.ListOrderHistoryRequest{})
	if err != nil {
		return err
	}
	if len(resp.Orders) == 0 {
		s.console.Printf("no orders yet\n")
		return nil
	}

	for _, o := range resp.Orders {
		s.console.Printf("%s  %-10s %-20s %10s  %s\n",
			o.CreatedAt.Format("2006-01-02"),
			o.Status,
			o.StoreName,
			repository.FormatCents(o.TotalAmountCents),
			o.ID,
		)
	}

	return nil
}

func (s *Shell) showOrder(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{s.commands["order"].usage}
	}

	resp, err := s.orders.GetOrder(ctx, repository.GetOrderRequest{OrderID: args[0]})
	if err != nil {
		return err
	}
	o := resp.Order

	s.console.Printf("order %s at %s: %s\n", o.ID, o.StoreName, o.Status)
	for _, item := range o.Items {
		s.console.Printf("  %d x %-24s %10s\n", item.Quantity, item.Name, repository.FormatCents(item.PriceCents))
	}
	s.console.Printf("total %s  discount %s  cashback %s\n",
		repository.FormatCents(o.TotalAmountCents),
		repository.FormatCents(o.DiscountAppliedCents),
		repository.FormatCents(o.CashbackAmountCents),
	)
	if o.QRCodeURL != "" && o.Status == repository.OrderPending {
		s.console.Printf("show this code at the store: %s\n", o.QRCodeURL)
	}

	return nil
}

func (s *Shell) printCart(state usecase.CartState) {
	if len(state.Lines) == 0 {
		if state.HasActiveStore() {
			s.console.Printf("cart at %s is empty\n", storeLabel(state))
			return
		}
		s.console.Printf("cart is empty\n")
		return
	}

	s.console.Printf("cart at %s\n", storeLabel(state))
	for _, line := range state.Lines {
		s.console.Printf("  %d x %-24s %10s  %s\n",
			line.Quantity,
			line.Name,
			repository.FormatCents(line.SubtotalCents()),
			line.ProductID,
		)
	}
	s.console.Printf("total %s  cashback %s  items %d\n",
		repository.FormatCents(state.TotalCents()),
		repository.FormatCents(state.CashbackCents()),
		state.BadgeCount,
	)
}

func storeLabel(state usecase.CartState) string {
	if state.ActiveStoreName == "" {
		return state.ActiveStoreID
	}
	return fmt.Sprintf("%s (%s)", state.ActiveStoreName, state.ActiveStoreID)
}

package usecase

// CartLine is one product of the active store's cart.
type CartLine struct {
	ProductID          string
	Name               string
	ImageURL           string
	UnitPriceCents     int64
	Quantity           int
	CashbackPercentage float64
	Stock              int
}

func (l CartLine) SubtotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// CartState is the client mirror of the server cart of exactly one store.
// An empty ActiveStoreID means no store is active.
type CartState struct {
	ActiveStoreID   string
	ActiveStoreName string
	Lines           []CartLine
	BadgeCount      int
}

func (s CartState) HasActiveStore() bool {
	return s.ActiveStoreID != ""
}

func (s CartState) TotalCents() int64 {
	var total int64
	for _, l := range s.Lines {
		total += l.SubtotalCents()
	}
	return total
}

// CashbackCents estimates the cashback of the whole cart, rounded to the
// nearest cent per line.
func (s CartState) CashbackCents() int64 {
	var total int64
	for _, l := range s.Lines {
		total += int64(float64(l.SubtotalCents())*l.CashbackPercentage/100 + 0.5)
	}
	return total
}

func (s CartState) clone() CartState {
	out := s
	if s.Lines != nil {
		out.Lines = make([]CartLine, len(s.Lines))
		copy(out.Lines, s.Lines)
	}
	return out
}

type AddToCartRequest struct {
	ProductID string
	StoreID   string
	// StoreName is optional and only used when the store becomes active.
	StoreName string
	Quantity  int
}

type CheckoutResponse struct {
	OrderID string
}

// ConflictPrompt is what a UI shows while a store change waits for the user.
type ConflictPrompt struct {
	Visible          bool
	CurrentStoreID   string
	CurrentStoreName string
	TargetStoreID    string
}

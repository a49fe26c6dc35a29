package repository

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// The backend serializes decimals either as JSON numbers or as strings
// ("12.90"), and older payloads use different field names, so cart and order
// bodies are read with gjson instead of fixed structs.

func parseCartItems(baseURL string, body []byte) []CartItem {
	items := []CartItem{}

	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		product := item.Get("product")
		if !product.IsObject() {
			return true
		}

		items = append(items, CartItem{
			ProductID:          product.Get("id").String(),
			Name:               product.Get("name").String(),
			ImageURL:           resolveImage(baseURL, product.Get("image")),
			UnitPriceCents:     firstCents(item.Get("priceSnapshot"), product.Get("price")),
			CashbackPercentage: firstFloat(item.Get("cashbackSnapshot"), product.Get("cashback_percentage"), product.Get("cashbackPercentage")),
			Quantity:           int(item.Get("quantity").Int()),
			Stock:              int(product.Get("quantity").Int()),
		})
		return true
	})

	return items
}

func parseOpenCart(body []byte) GetOpenCartResponse {
	if !gjson.ValidBytes(body) {
		return GetOpenCartResponse{}
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return GetOpenCartResponse{}
	}

	storeID := firstString(root.Get("storeId"), root.Get("store.id"))
	if storeID == "" {
		return GetOpenCartResponse{}
	}

	return GetOpenCartResponse{
		Found:      true,
		StoreID:    storeID,
		StoreName:  firstString(root.Get("storeName"), root.Get("store.name")),
		ItemsCount: int(root.Get("itemsCount").Int()),
	}
}

func parseOrder(baseURL string, o gjson.Result) Order {
	order := Order{
		ID:                   o.Get("id").String(),
		StoreID:              firstString(o.Get("store.id"), o.Get("storeId")),
		StoreName:            o.Get("store.name").String(),
		TotalAmountCents:     firstCents(o.Get("totalAmount")),
		DiscountAppliedCents: firstCents(o.Get("discountApplied")),
		CashbackAmountCents:  firstCents(o.Get("cashbackAmount")),
		Status:               o.Get("status").String(),
		CreatedAt:            parseTime(o.Get("created_at")),
		QRCodeURL:            o.Get("qrCodeUrl").String(),
		Items:                []OrderItem{},
	}
	if validated := parseTime(o.Get("validated_at")); !validated.IsZero() {
		order.ValidatedAt = &validated
	}

	o.Get("items").ForEach(func(_, item gjson.Result) bool {
		product := item.Get("product")
		order.Items = append(order.Items, OrderItem{
			ID:                 item.Get("id").String(),
			ProductID:          product.Get("id").String(),
			Name:               product.Get("name").String(),
			ImageURL:           resolveImage(baseURL, product.Get("image")),
			PriceCents:         firstCents(product.Get("price")),
			CashbackPercentage: firstFloat(product.Get("cashback_percentage")),
			Quantity:           int(item.Get("quantity").Int()),
		})
		return true
	})

	return order
}

// resolveImage keeps absolute URLs, maps bare file names to the uploads
// directory and falls back to a placeholder.
func resolveImage(baseURL string, r gjson.Result) string {
	if r.Type != gjson.String || strings.TrimSpace(r.Str) == "" {
		return PlaceholderImage
	}
	if strings.HasPrefix(r.Str, "http") {
		return r.Str
	}
	return baseURL + UploadsPath + strings.TrimLeft(r.Str, "/")
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func firstString(results ...gjson.Result) string {
	for _, r := range results {
		if present(r) && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

func firstFloat(results ...gjson.Result) float64 {
	for _, r := range results {
		if !present(r) {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64); err == nil {
			return f
		}
	}
	return 0
}

func firstCents(results ...gjson.Result) int64 {
	for _, r := range results {
		if !present(r) {
			continue
		}
		raw := r.Str
		if r.Type == gjson.Number {
			raw = r.Raw
		}
		if cents, ok := ParseCents(raw); ok {
			return cents
		}
	}
	return 0
}

// ParseCents converts a decimal amount ("12.9", "-0.05", "7") to cents,
// rounding half away from zero past the second decimal.
func ParseCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		// Exponent notation and friends.
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		cents := int64(math.Round(f * 100))
		if neg {
			cents = -cents
		}
		return cents, true
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}

	frac += "000"
	fraction, _ := strconv.ParseInt(frac[:2], 10, 64)
	if frac[2] >= '5' {
		fraction++
	}

	cents := units*100 + fraction
	if neg {
		cents = -cents
	}
	return cents, true
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseTime(r gjson.Result) time.Time {
	if r.Type != gjson.String {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, r.Str)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatCents renders cents as a decimal amount with two places.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + leftPad2(cents%100)
}

func leftPad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

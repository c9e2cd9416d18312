package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the requested line could not be located.
var ErrNotFound = errors.New("cart line not found")

// ErrInvalidInput is returned when the provided line is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrStockExceeded signals that a product addition would exceed the available stock.
var ErrStockExceeded = errors.New("stock exceeded")

// UnlimitedStock disables the stock ceiling for an addition. Service lines
// always behave as if unlimited.
const UnlimitedStock = -1

// Cart is an in-memory collection of checkout lines. It is owned exclusively
// by a single checkout session and performs no persistence. Lines are unique
// by item id; adding an existing item increments its quantity.
type Cart struct {
	order []string
	lines map[string]pricing.CartLine
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: map[string]pricing.CartLine{}}
}

// Add inserts a new line or increments the quantity of an existing one.
// stockCeiling bounds the resulting quantity for product lines; pass
// UnlimitedStock to skip the check.
func (c *Cart) Add(line pricing.CartLine, stockCeiling int) error {
	if strings.TrimSpace(line.ItemID) == "" || strings.TrimSpace(line.Name) == "" {
		return fmt.Errorf("item id and name required: %w", ErrInvalidInput)
	}
	if line.Qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if line.UnitPrice < 0 {
		return fmt.Errorf("unit price must not be negative: %w", ErrInvalidInput)
	}
	switch line.Kind {
	case pricing.KindProduct, pricing.KindService:
	default:
		return fmt.Errorf("unknown line kind %q: %w", line.Kind, ErrInvalidInput)
	}

	existing, ok := c.lines[line.ItemID]
	newQty := line.Qty
	if ok {
		newQty += existing.Qty
	}
	if line.Kind == pricing.KindProduct && stockCeiling != UnlimitedStock && newQty > stockCeiling {
		return fmt.Errorf("requested %d of %s with %d in stock: %w", newQty, line.ItemID, stockCeiling, ErrStockExceeded)
	}

	if ok {
		existing.Qty = newQty
		c.lines[line.ItemID] = existing
		return nil
	}
	line.Qty = newQty
	c.lines[line.ItemID] = line
	c.order = append(c.order, line.ItemID)
	return nil
}

// Increment raises the quantity of an existing line by one, honouring the
// stock ceiling for product lines.
func (c *Cart) Increment(itemID string, stockCeiling int) error {
	line, ok := c.lines[itemID]
	if !ok {
		return ErrNotFound
	}
	if line.Kind == pricing.KindProduct && stockCeiling != UnlimitedStock && line.Qty+1 > stockCeiling {
		return fmt.Errorf("requested %d of %s with %d in stock: %w", line.Qty+1, itemID, stockCeiling, ErrStockExceeded)
	}
	line.Qty++
	c.lines[itemID] = line
	return nil
}

// Decrement lowers the quantity of an existing line by one, removing the line
// when it reaches zero.
func (c *Cart) Decrement(itemID string) error {
	line, ok := c.lines[itemID]
	if !ok {
		return ErrNotFound
	}
	line.Qty--
	if line.Qty <= 0 {
		c.remove(itemID)
		return nil
	}
	c.lines[itemID] = line
	return nil
}

// Remove deletes a line regardless of quantity.
func (c *Cart) Remove(itemID string) error {
	if _, ok := c.lines[itemID]; !ok {
		return ErrNotFound
	}
	c.remove(itemID)
	return nil
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.order = nil
	c.lines = map[string]pricing.CartLine{}
}

// Lines returns the cart contents in insertion order.
func (c *Cart) Lines() []pricing.CartLine {
	out := make([]pricing.CartLine, 0, len(c.order))
	for _, id := range c.order {
		if line, ok := c.lines[id]; ok {
			out = append(out, line)
		}
	}
	return out
}

// Line returns a single line by item id.
func (c *Cart) Line(itemID string) (pricing.CartLine, bool) {
	line, ok := c.lines[itemID]
	return line, ok
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Empty reports whether the cart holds no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) remove(itemID string) {
	delete(c.lines, itemID)
	for i, id := range c.order {
		if id == itemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

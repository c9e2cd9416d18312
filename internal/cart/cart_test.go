package cart

import (
	"errors"
	"testing"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

func productLine(id string, qty int) pricing.CartLine {
	return pricing.CartLine{Kind: pricing.KindProduct, ItemID: id, Name: "Item " + id, UnitPrice: 10_00, Qty: qty, Unit: "pcs"}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	c := New()
	if err := c.Add(productLine("p1", 1), 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(productLine("p1", 2), 10); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected a single line, got %d", c.Len())
	}
	line, _ := c.Line("p1")
	if line.Qty != 3 {
		t.Fatalf("expected qty 3, got %d", line.Qty)
	}
}

func TestAddRejectsStockExceeded(t *testing.T) {
	c := New()
	if err := c.Add(productLine("p1", 2), 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := c.Add(productLine("p1", 2), 3)
	if !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded, got %v", err)
	}
	line, _ := c.Line("p1")
	if line.Qty != 2 {
		t.Fatalf("expected qty untouched at 2, got %d", line.Qty)
	}
}

func TestServiceLinesIgnoreStockCeiling(t *testing.T) {
	c := New()
	svc := pricing.CartLine{Kind: pricing.KindService, ItemID: "s1", Name: "Cut", UnitPrice: 50_00, Qty: 5, DurationMin: 30}
	if err := c.Add(svc, 1); err != nil {
		t.Fatalf("expected service add to ignore ceiling, got %v", err)
	}
	if err := c.Increment("s1", 1); err != nil {
		t.Fatalf("expected service increment to ignore ceiling, got %v", err)
	}
}

func TestDecrementRemovesAtZero(t *testing.T) {
	c := New()
	if err := c.Add(productLine("p1", 1), UnlimitedStock); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Decrement("p1"); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if !c.Empty() {
		t.Fatal("expected empty cart after decrementing to zero")
	}
	if err := c.Decrement("p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	c := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := c.Add(productLine(id, 1), UnlimitedStock); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if err := c.Remove("b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	lines := c.Lines()
	if len(lines) != 2 || lines[0].ItemID != "a" || lines[1].ItemID != "c" {
		t.Fatalf("unexpected order: %+v", lines)
	}
}

func TestAddValidation(t *testing.T) {
	c := New()
	if err := c.Add(pricing.CartLine{Kind: pricing.KindProduct, ItemID: "", Name: "x", Qty: 1}, UnlimitedStock); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if err := c.Add(pricing.CartLine{Kind: pricing.KindProduct, ItemID: "p", Name: "x", Qty: 0}, UnlimitedStock); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero qty, got %v", err)
	}
	if err := c.Add(pricing.CartLine{Kind: "misc", ItemID: "p", Name: "x", Qty: 1}, UnlimitedStock); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
}

func TestClear(t *testing.T) {
	c := New()
	_ = c.Add(productLine("p1", 2), UnlimitedStock)
	c.Clear()
	if !c.Empty() || len(c.Lines()) != 0 {
		t.Fatal("expected cleared cart")
	}
}

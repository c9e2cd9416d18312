package pricing

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		tendered Money
		total    Money
		want     PaymentStatus
	}{
		{"exact", 239_00, 239_00, StatusPaid},
		{"overpay floors to paid", 300_00, 239_00, StatusPaid},
		{"partial", 100_00, 239_00, StatusPartial},
		{"credit", 0, 239_00, StatusCredit},
	}
	for _, tc := range cases {
		if got := Classify(tc.tendered, tc.total); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	rank := map[PaymentStatus]int{StatusCredit: 0, StatusPartial: 1, StatusPaid: 2}
	total := Money(500_00)
	prev := -1
	for tendered := Money(0); tendered <= total+100_00; tendered += 50_00 {
		current := rank[Classify(tendered, total)]
		if current < prev {
			t.Fatalf("status rank decreased at tendered=%d", tendered)
		}
		prev = current
	}
}

func TestClampTendered(t *testing.T) {
	if got := ClampTendered(-5, 100); got != 0 {
		t.Fatalf("expected negative tendered clamped to 0, got %d", got)
	}
	if got := ClampTendered(150, 100); got != 100 {
		t.Fatalf("expected tendered clamped to total, got %d", got)
	}
	if got := ClampTendered(80, 100); got != 80 {
		t.Fatalf("expected tendered unchanged, got %d", got)
	}
}

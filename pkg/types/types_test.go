package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseSide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"buy", BUY, false},
		{"SELL", SELL, false},
		{"Buy", BUY, false},
		{"hold", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOrderType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    OrderType
		wantErr bool
	}{
		{"limit", OrderTypeLimit, false},
		{"MARKET", OrderTypeMarket, false},
		{"stop", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOrderType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrderType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOrderType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPortfolioAddPurgesZeroEntries(t *testing.T) {
	t.Parallel()

	p := Portfolio{}
	p.Add("CTX", dec("100"))
	if got := p.Get("CTX"); !got.Equal(dec("100")) {
		t.Fatalf("Get(CTX) = %s, want 100", got)
	}

	p.Add("CTX", dec("-40"))
	if got := p.Get("CTX"); !got.Equal(dec("60")) {
		t.Fatalf("Get(CTX) after partial sale = %s, want 60", got)
	}

	p.Add("CTX", dec("-60"))
	if _, ok := p["CTX"]; ok {
		t.Fatal("portfolio kept a zero entry for CTX")
	}

	p.Add("MOOD", dec("-5"))
	if _, ok := p["MOOD"]; ok {
		t.Fatal("portfolio kept a negative entry for MOOD")
	}
}

func TestAgentNetWorth(t *testing.T) {
	t.Parallel()

	a := &Agent{
		Balance:   dec("1000"),
		Portfolio: Portfolio{"CTX": dec("10"), "GONE": dec("5")},
	}
	prices := map[string]decimal.Decimal{"CTX": dec("50")}

	// GONE has no quoted price and counts as zero.
	if got, want := a.NetWorth(prices), dec("1500"); !got.Equal(want) {
		t.Errorf("NetWorth = %s, want %s", got, want)
	}
}

func TestAgentAvailable(t *testing.T) {
	t.Parallel()

	a := &Agent{Balance: dec("1000"), Reserved: dec("250")}
	if got, want := a.Available(), dec("750"); !got.Equal(want) {
		t.Errorf("Available = %s, want %s", got, want)
	}
}

func TestCompanySetSharePrice(t *testing.T) {
	t.Parallel()

	c := &Company{TotalShares: dec("1000000")}
	c.SetSharePrice(dec("2.5"))

	if !c.SharePrice.Equal(dec("2.5")) {
		t.Errorf("SharePrice = %s, want 2.5", c.SharePrice)
	}
	if want := dec("2500000"); !c.MarketCap.Equal(want) {
		t.Errorf("MarketCap = %s, want %s", c.MarketCap, want)
	}
}

func TestOrderRemainingAndFilled(t *testing.T) {
	t.Parallel()

	o := &Order{Quantity: dec("100"), FilledQuantity: dec("40")}
	if got, want := o.Remaining(), dec("60"); !got.Equal(want) {
		t.Errorf("Remaining = %s, want %s", got, want)
	}
	if o.IsFilled() {
		t.Error("IsFilled = true for a partially filled order")
	}

	o.FilledQuantity = dec("100")
	if !o.IsFilled() {
		t.Error("IsFilled = false for a fully filled order")
	}
}

func TestNewIDLength(t *testing.T) {
	t.Parallel()

	if got := NewID(); len(got) != 8 {
		t.Errorf("NewID() = %q, want 8 characters", got)
	}
}

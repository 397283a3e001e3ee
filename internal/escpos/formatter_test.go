package escpos

import (
	"bytes"
	"testing"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, time.March, 9, 18, 45, 0, 0, time.UTC)

func newTestFormatter() *Formatter {
	return New(WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func indexOf(t *testing.T, out []byte, s string) int {
	t.Helper()
	return bytes.Index(out, Encode(s))
}

func TestKitchenSectionsFollowFixedOrder(t *testing.T) {
	f := newTestFormatter()
	out := f.Kitchen(entity.Order{
		OrderID: "K1",
		Items: []entity.Item{
			{Name: "Mango Lassi", Quantity: 2, Section: entity.SectionDrinks},
			{Name: "Lamb Bhuna", Quantity: 1, Section: entity.SectionMainCourse},
		},
	})

	mains := indexOf(t, out, "MAIN COURSE:")
	drinks := indexOf(t, out, "DRINKS:")
	if mains < 0 || drinks < 0 {
		t.Fatalf("missing section headers: mains=%d drinks=%d", mains, drinks)
	}
	if mains > drinks {
		t.Errorf("MAIN COURSE printed after DRINKS")
	}
	for _, empty := range []string{"STARTERS:", "RICE & BREAD:", "SIDES:", "DESSERTS:", "OTHER:"} {
		if indexOf(t, out, empty) >= 0 {
			t.Errorf("unexpected header %q for empty section", empty)
		}
	}
}

func TestKitchenRiceAndBreadOnly(t *testing.T) {
	out := newTestFormatter().Kitchen(entity.Order{
		Items: []entity.Item{{Name: "Rice", Quantity: 1, Section: entity.SectionRiceBread}},
	})
	if indexOf(t, out, "RICE & BREAD:") < 0 {
		t.Error("expected RICE & BREAD header")
	}
	if indexOf(t, out, "STARTERS:") >= 0 {
		t.Error("did not expect STARTERS header")
	}
	if indexOf(t, out, "1x Rice") < 0 {
		t.Error("expected item line")
	}
}

func TestKitchenItemsKeepInputOrderWithinSection(t *testing.T) {
	out := newTestFormatter().Kitchen(entity.Order{
		Items: []entity.Item{
			{Name: "Samosa", Quantity: 1, Section: "starters"},
			{Name: "Onion Bhaji", Quantity: 3, Section: entity.SectionStarters},
		},
	})
	a, b := indexOf(t, out, "1x Samosa"), indexOf(t, out, "3x Onion Bhaji")
	if a < 0 || b < 0 || a > b {
		t.Fatalf("items out of order: samosa=%d bhaji=%d", a, b)
	}
}

func TestKitchenUnknownSectionFallsBackToOther(t *testing.T) {
	out := newTestFormatter().Kitchen(entity.Order{
		Items: []entity.Item{{Name: "Poppadom", Quantity: 4, Section: "snacks"}},
	})
	if indexOf(t, out, "OTHER:") < 0 {
		t.Error("expected OTHER header for unknown section")
	}
}

func TestKitchenItemDetails(t *testing.T) {
	out := newTestFormatter().Kitchen(entity.Order{
		OrderID:             "42",
		OrderType:           entity.OrderDineIn,
		TableNumber:         "7",
		GuestCount:          3,
		SpecialInstructions: "Birthday, bring candle",
		Items: []entity.Item{{
			Name:       "Chicken Tikka Masala",
			Quantity:   2,
			Section:    entity.SectionMainCourse,
			Variant:    "Half",
			SpiceLevel: "Hot",
			Modifiers:  []entity.Modifier{{Name: "Extra sauce"}},
			Allergens:  []string{"Dairy", "dairy", "Nuts"},
			Notes:      "No coriander",
			PrepTime:   15,
		}},
	})

	for _, want := range []string{
		"Order #42",
		"DINE-IN - Table 7",
		"Guests: 3",
		"Time: 09 Mar 2024 18:45",
		"2x Chicken Tikka Masala",
		"  (Half)",
		"  Spice: Hot",
		"  + Extra sauce",
		"  Allergens: Dairy, Nuts",
		"  NOTE: No coriander",
		"  Prep: 15 min",
		"SPECIAL INSTRUCTIONS:",
		"Birthday, bring candle",
	} {
		if indexOf(t, out, want) < 0 {
			t.Errorf("kitchen ticket missing %q", want)
		}
	}

	note := indexOf(t, out, "  NOTE: No coriander")
	underlineOn := []byte{esc, '-', 1}
	if !bytes.HasSuffix(out[:note], underlineOn) {
		t.Error("note line is not underlined")
	}
}

func TestCustomerReceiptTotal(t *testing.T) {
	f := newTestFormatter()
	o := entity.Order{
		OrderID: "T1",
		Items: []entity.Item{
			{Name: "Naan", Quantity: 2, Price: price("3.00")},
			{Name: "Curry", Quantity: 1, Price: price("8.50")},
		},
	}
	out := f.Customer(o)
	if indexOf(t, out, "TOTAL: £14.50") < 0 {
		t.Fatalf("expected total line, got %q", out)
	}
	if got := f.FormatMoney(ReceiptTotal(o)); got != "£14.50" {
		t.Errorf("ReceiptTotal = %s, want £14.50", got)
	}
	if indexOf(t, out, "£6.00") < 0 {
		t.Error("expected naan line total £6.00")
	}
	if indexOf(t, out, "Charged:") >= 0 {
		t.Error("charged line printed without total_amount")
	}
}

func TestReceiptTotalCountsPositiveModifiersOnly(t *testing.T) {
	o := entity.Order{Items: []entity.Item{
		{Name: "Biryani", Quantity: 2, Price: price("9.95"), Modifiers: []entity.Modifier{
			{Name: "Raita", Price: price("1.50")},
			{Name: "No onion", Price: price("-0.50")},
			{Name: "Extra spicy"},
		}},
		{Name: "Lassi", Quantity: 3, Price: price("0.10")},
	}}
	// 19.90 + 1.50 + 0.30; float addition would drift here.
	want := price("21.70")
	if got := ReceiptTotal(o); !got.Equal(want) {
		t.Errorf("ReceiptTotal = %s, want %s", got, want)
	}
	out := newTestFormatter().Customer(o)
	if indexOf(t, out, "+ Raita") < 0 {
		t.Error("positive modifier not listed")
	}
	if indexOf(t, out, "No onion") >= 0 || indexOf(t, out, "Extra spicy") >= 0 {
		t.Error("zero or negative modifiers should not be listed on the receipt")
	}
}

func TestCustomerReceiptExtras(t *testing.T) {
	out := newTestFormatter().Customer(entity.Order{
		OrderID:       "C9",
		Customer:      &entity.Customer{FirstName: "Asha", LastName: "Patel", Phone: "07700 900123"},
		TotalAmount:   price("12.00"),
		PaymentMethod: "card",
		Items:         []entity.Item{{Name: "Dal", Quantity: 1, Price: price("10.00")}},
	})
	for _, want := range []string{
		"Customer Receipt",
		"Traditional Indian Cuisine",
		"Date: 09/03/2024",
		"Customer: Asha Patel",
		"Phone: 07700 900123",
		"TOTAL: £10.00",
		"Charged: £12.00",
		"Payment: card",
		"Thank you for your order!",
	} {
		if indexOf(t, out, want) < 0 {
			t.Errorf("receipt missing %q", want)
		}
	}
}

func TestOutputIsDeterministic(t *testing.T) {
	f := newTestFormatter()
	o := entity.Order{
		OrderID: "D1",
		Items: []entity.Item{
			{Name: "Korma", Quantity: 1, Price: price("7.25"), Section: entity.SectionMainCourse},
			{Name: "Kulfi", Quantity: 2, Price: price("3.10"), Section: entity.SectionDesserts},
		},
	}
	if !bytes.Equal(f.Kitchen(o), f.Kitchen(o)) {
		t.Error("kitchen ticket not deterministic")
	}
	if !bytes.Equal(f.Customer(o), f.Customer(o)) {
		t.Error("customer receipt not deterministic")
	}
}

func TestTestTicketFraming(t *testing.T) {
	out := newTestFormatter().Test()
	if !bytes.HasPrefix(out, []byte{esc, '@', esc, 't', codePage858}) {
		t.Errorf("missing init prefix: % x", out[:8])
	}
	if !bytes.HasSuffix(out, []byte{esc, 'd', 3, gs, 'V', 0x41, 0x03}) {
		t.Errorf("missing feed and cut suffix: % x", out[len(out)-8:])
	}
	if indexOf(t, out, "Time: 09 Mar 2024 18:45:00") < 0 {
		t.Error("missing timestamp")
	}
}

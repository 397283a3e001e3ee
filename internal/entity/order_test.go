package entity

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOrderUnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	raw := `{
		"order_id": 1042,
		"order_type": "dine-in",
		"table_number": "12",
		"items": [{"name": "Naan", "quantity": 2, "price": 3.00, "section": "rice & bread",
			"modifiers": [{"name": "Garlic", "price": "0.50"}]}],
		"total_amount": 6.5
	}`
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		t.Fatal(err)
	}
	if o.OrderID != "1042" || o.TableNumber != "12" {
		t.Errorf("labels = %q %q", o.OrderID, o.TableNumber)
	}
	if o.Items[0].Section.Normalize() != SectionRiceBread {
		t.Errorf("section = %q", o.Items[0].Section)
	}
	if got := o.Items[0].LineTotal().StringFixed(2); got != "6.00" {
		t.Errorf("line total = %s", got)
	}
	if got := o.Items[0].Modifiers[0].Price.StringFixed(2); got != "0.50" {
		t.Errorf("modifier price = %s", got)
	}
}

func TestLabelNull(t *testing.T) {
	var o Order
	if err := json.Unmarshal([]byte(`{"order_id": null, "items": []}`), &o); err != nil {
		t.Fatal(err)
	}
	if o.OrderID != "" {
		t.Errorf("order id = %q", o.OrderID)
	}
	if err := json.Unmarshal([]byte(`{"order_id": true}`), &o); err == nil {
		t.Error("expected error for boolean order id")
	}
}

func TestOrderValidate(t *testing.T) {
	ok := Order{Items: []Item{{Name: "Dal", Quantity: 1}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}

	cases := map[string]Order{
		"items":             {},
		"items[0].name":     {Items: []Item{{Quantity: 1}}},
		"items[0].quantity": {Items: []Item{{Name: "Dal"}}},
		"guest_count":       {GuestCount: -1, Items: []Item{{Name: "Dal", Quantity: 1}}},
	}
	for field, o := range cases {
		err := o.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != field {
			t.Errorf("%s: err = %v", field, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: not ErrValidation", field)
		}
	}
}

func TestUniqueAllergens(t *testing.T) {
	it := Item{Allergens: []string{"Nuts", " ", "nuts", "Gluten"}}
	got := it.UniqueAllergens()
	if len(got) != 2 || got[0] != "Nuts" || got[1] != "Gluten" {
		t.Errorf("allergens = %v", got)
	}
}

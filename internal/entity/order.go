package entity

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderDineIn   OrderType = "dine-in"
	OrderTakeaway OrderType = "takeaway"
	OrderDelivery OrderType = "delivery"
)

// Section is the kitchen station group an item is printed under.
type Section string

const (
	SectionStarters   Section = "STARTERS"
	SectionMainCourse Section = "MAIN COURSE"
	SectionRiceBread  Section = "RICE & BREAD"
	SectionSides      Section = "SIDES"
	SectionDesserts   Section = "DESSERTS"
	SectionDrinks     Section = "DRINKS"
	SectionOther      Section = "OTHER"
)

// Sections lists every section in the order the kitchen ticket prints them.
var Sections = []Section{
	SectionStarters,
	SectionMainCourse,
	SectionRiceBread,
	SectionSides,
	SectionDesserts,
	SectionDrinks,
	SectionOther,
}

// Normalize maps free-form section names onto a known section, OTHER if unknown.
func (s Section) Normalize() Section {
	up := Section(strings.ToUpper(strings.TrimSpace(string(s))))
	for _, known := range Sections {
		if up == known {
			return known
		}
	}
	return SectionOther
}

// Label is a string that also accepts bare JSON numbers, since the POS sends
// order and table numbers either way.
type Label string

func (l *Label) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*l = ""
		return nil
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*l = Label(v)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*l = Label(n.String())
		return nil
	}
}

func (l Label) String() string { return string(l) }

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins first and last name, skipping blanks.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Modifier struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Item struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Section    Section         `json:"section,omitempty"`
	Variant    string          `json:"variant,omitempty"`
	SpiceLevel string          `json:"spice_level,omitempty"`
	Modifiers  []Modifier      `json:"modifiers,omitempty"`
	Allergens  []string        `json:"allergens,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	PrepTime   int             `json:"prep_time,omitempty"`
}

// LineTotal is price times quantity.
func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// UniqueAllergens drops blanks and duplicates, keeping first-seen order.
func (it Item) UniqueAllergens() []string {
	seen := make(map[string]struct{}, len(it.Allergens))
	out := make([]string, 0, len(it.Allergens))
	for _, a := range it.Allergens {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

type Order struct {
	OrderID             Label           `json:"order_id"`
	OrderType           OrderType       `json:"order_type,omitempty"`
	TableNumber         Label           `json:"table_number,omitempty"`
	GuestCount          int             `json:"guest_count,omitempty"`
	Items               []Item          `json:"items"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	Customer            *Customer       `json:"customer_data,omitempty"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	PaymentMethod       string          `json:"payment_method,omitempty"`
}

// Validate checks the fields every ticket needs. Checks run in field order
// and the first failure is returned.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return NewValidationError("items", "at least one item is required")
	}
	for i, it := range o.Items {
		if strings.TrimSpace(it.Name) == "" {
			return NewValidationError(itemField(i, "name"), "is required")
		}
		if it.Quantity < 1 {
			return NewValidationError(itemField(i, "quantity"), "must be at least 1")
		}
		if it.Price.IsNegative() {
			return NewValidationError(itemField(i, "price"), "must not be negative")
		}
	}
	if o.GuestCount < 0 {
		return NewValidationError("guest_count", "must not be negative")
	}
	return nil
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}

package escpos

import (
	"fmt"
	"strings"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	DefaultWidth    = 48
	DefaultCurrency = "£"
	DefaultTitle    = "COTTAGE TANDOORI"
)

// Formatter turns orders into tickets. It has no side effects: for a fixed
// order and clock the output is byte-identical.
type Formatter struct {
	now      func() time.Time
	loc      *time.Location
	width    int
	currency string
	title    string
	address  []string
}

type Option func(*Formatter)

func WithClock(now func() time.Time) Option { return func(f *Formatter) { f.now = now } }
func WithLocation(loc *time.Location) Option { return func(f *Formatter) { f.loc = loc } }
func WithWidth(n int) Option                 { return func(f *Formatter) { f.width = n } }
func WithCurrency(sym string) Option         { return func(f *Formatter) { f.currency = sym } }
func WithTitle(t string) Option              { return func(f *Formatter) { f.title = t } }
func WithAddress(lines ...string) Option     { return func(f *Formatter) { f.address = lines } }

// New constructs a Formatter. Defaults: 48 columns, pound sterling, local time.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		now:      time.Now,
		loc:      time.Local,
		width:    DefaultWidth,
		currency: DefaultCurrency,
		title:    DefaultTitle,
		address:  []string{"Traditional Indian Cuisine", "Phone: 01234 567890"},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.width <= 0 {
		f.width = DefaultWidth
	}
	if f.loc == nil {
		f.loc = time.Local
	}
	return f
}

func (f *Formatter) header(b *Builder, subtitle string) {
	b.Init().
		Align(AlignCenter).
		Size(SizeDouble).Bold(true).Line(f.title).Bold(false).
		Size(SizeNormal).Line(subtitle)
}

func (f *Formatter) clock() time.Time {
	return f.now().In(f.loc)
}

// Kitchen renders the ticket the kitchen cooks from: items grouped by
// section, no prices.
func (f *Formatter) Kitchen(o entity.Order) []byte {
	b := NewBuilder(f.width)
	f.header(b, "KITCHEN ORDER")
	b.Feed(2).Align(AlignLeft)

	b.Bold(true).Line("Order #" + o.OrderID.String()).Bold(false)
	if line := serviceLine(o); line != "" {
		b.Bold(true).Line(line).Bold(false)
	}
	if o.GuestCount > 0 {
		b.Line(fmt.Sprintf("Guests: %d", o.GuestCount))
	}
	b.Line("Time: " + f.clock().Format("02 Jan 2006 15:04"))
	b.Separator()

	for _, group := range GroupBySection(o.Items) {
		b.Bold(true).Line(string(group.Section) + ":").Bold(false)
		for _, it := range group.Items {
			kitchenItem(b, it)
		}
	}

	if s := strings.TrimSpace(o.SpecialInstructions); s != "" {
		b.Bold(true).Line("SPECIAL INSTRUCTIONS:").Bold(false)
		b.Line(s)
		b.Feed(2)
	}

	return b.Feed(3).Cut().Bytes()
}

func kitchenItem(b *Builder, it entity.Item) {
	b.Line(fmt.Sprintf("%dx %s", it.Quantity, it.Name))
	if it.Variant != "" {
		b.Line("  (" + it.Variant + ")")
	}
	if it.SpiceLevel != "" {
		b.Line("  Spice: " + it.SpiceLevel)
	}
	for _, m := range it.Modifiers {
		b.Line("  + " + m.Name)
	}
	if a := it.UniqueAllergens(); len(a) > 0 {
		b.Line("  Allergens: " + strings.Join(a, ", "))
	}
	if it.Notes != "" {
		b.Underline(true).Line("  NOTE: " + it.Notes).Underline(false)
	}
	if it.PrepTime > 0 {
		b.Line(fmt.Sprintf("  Prep: %d min", it.PrepTime))
	}
	b.Blank()
}

func serviceLine(o entity.Order) string {
	var parts []string
	if o.OrderType != "" {
		parts = append(parts, strings.ToUpper(string(o.OrderType)))
	}
	if o.TableNumber != "" {
		parts = append(parts, "Table "+o.TableNumber.String())
	}
	return strings.Join(parts, " - ")
}

// Customer renders the priced receipt handed to the guest.
func (f *Formatter) Customer(o entity.Order) []byte {
	b := NewBuilder(f.width)
	f.header(b, "Customer Receipt")
	for _, line := range f.address {
		b.Line(line)
	}
	b.Feed(1).Align(AlignLeft).Separator()

	now := f.clock()
	b.Bold(true).Line("Order #" + o.OrderID.String()).Bold(false)
	b.Line("Date: " + now.Format("02/01/2006"))
	b.Line("Time: " + now.Format("15:04"))
	if c := o.Customer; c != nil {
		if name := c.FullName(); name != "" {
			b.Line("Customer: " + name)
		}
		if c.Phone != "" {
			b.Line("Phone: " + c.Phone)
		}
	}
	b.Separator()

	for _, it := range o.Items {
		b.Line(fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		b.Columns(fmt.Sprintf("    %d x %s", it.Quantity, f.money(it.Price)), f.money(it.LineTotal()))
		for _, m := range it.Modifiers {
			if m.Price.IsPositive() {
				b.Columns("    + "+m.Name, f.money(m.Price))
			}
		}
	}
	b.Separator()

	total := ReceiptTotal(o)
	b.Bold(true).Line("TOTAL: " + f.money(total)).Bold(false)
	if !o.TotalAmount.IsZero() && !o.TotalAmount.Equal(total) {
		b.Line("Charged: " + f.money(o.TotalAmount))
	}
	if o.PaymentMethod != "" {
		b.Line("Payment: " + o.PaymentMethod)
	}

	b.Feed(1).Align(AlignCenter).
		Line("Thank you for your order!").
		Line("Visit us again soon!")
	return b.Feed(3).Cut().Bytes()
}

// Test renders a fixed self-check ticket.
func (f *Formatter) Test() []byte {
	b := NewBuilder(f.width)
	f.header(b, "TEST PRINT")
	b.Feed(1).Align(AlignLeft)
	b.Line("Time: " + f.clock().Format("02 Jan 2006 15:04:05"))
	b.Separator()
	b.Line("Printer: OK")
	b.Line("Connection: OK")
	b.Line("ESC/POS: OK")
	b.Separator()
	return b.Feed(3).Cut().Bytes()
}

// Text prints free-form lines, left aligned.
func (f *Formatter) Text(lines []string) []byte {
	b := NewBuilder(f.width)
	b.Init().Align(AlignLeft)
	for _, l := range lines {
		b.Line(l)
	}
	return b.Feed(3).Cut().Bytes()
}

// FormatMoney renders an amount with the configured symbol and two decimals.
func (f *Formatter) FormatMoney(d decimal.Decimal) string { return f.money(d) }

func (f *Formatter) money(d decimal.Decimal) string {
	return f.currency + d.StringFixed(2)
}

// ReceiptTotal sums line totals and positive-priced modifiers.
func ReceiptTotal(o entity.Order) decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
		for _, m := range it.Modifiers {
			if m.Price.IsPositive() {
				total = total.Add(m.Price)
			}
		}
	}
	return total
}

type SectionGroup struct {
	Section entity.Section
	Items   []entity.Item
}

// GroupBySection buckets items into the fixed section order, dropping empty
// sections. Items keep their input order within a section.
func GroupBySection(items []entity.Item) []SectionGroup {
	buckets := make(map[entity.Section][]entity.Item, len(entity.Sections))
	for _, it := range items {
		s := it.Section.Normalize()
		buckets[s] = append(buckets[s], it)
	}
	out := make([]SectionGroup, 0, len(buckets))
	for _, s := range entity.Sections {
		if len(buckets[s]) == 0 {
			continue
		}
		out = append(out, SectionGroup{Section: s, Items: buckets[s]})
	}
	return out
}

package coffee

import (
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"
)

// Coffee is a catalog item. ID is assigned by the catalog; zero means the
// coffee has not been created yet and is left out of every encoding.
type Coffee struct {
	XMLName xml.Name        `xml:"coffee" json:"-"`
	ID      int64           `xml:"id,omitempty" json:"id,omitempty"`
	Name    string          `xml:"name" json:"name"`
	Price   decimal.Decimal `xml:"price" json:"price"`
}

// List is the wire form of a sequence of coffees.
type List struct {
	XMLName xml.Name `xml:"coffees"`
	Coffees []Coffee `xml:"coffee"`
}

// New proposes a coffee that has no ID yet.
func New(name string, price decimal.Decimal) Coffee {
	return Coffee{Name: name, Price: price}
}

// Equal reports whether both coffees have the same ID, name and price.
// Prices are compared numerically, so 3.5 equals 3.50.
func (c Coffee) Equal(other Coffee) bool {
	return c.ID == other.ID && c.Name == other.Name && c.Price.Equal(other.Price)
}

// Key returns a canonical string that is equal for equal coffees.
func (c Coffee) Key() string {
	return fmt.Sprintf("%d|%q|%s", c.ID, c.Name, c.Price.String())
}

func (c Coffee) String() string {
	return fmt.Sprintf("coffee[id=%d, name=%s, price=%s]", c.ID, c.Name, c.Price)
}

package product

import "fmt"

// Price is a monetary amount in cents.
type Price int64

func (p Price) Cents() int64 { return int64(p) }

// Dollars returns the whole-dollar part, truncated toward zero.
func (p Price) Dollars() int64 { return int64(p) / 100 }

// CentsPart returns the fractional cents of the absolute value.
func (p Price) CentsPart() int64 {
	c := int64(p) % 100
	if c < 0 {
		c = -c
	}
	return c
}

func (p Price) Abs() Price {
	if p < 0 {
		return -p
	}
	return p
}

func (p Price) Add(o Price) Price { return p + o }

func (p Price) Mul(n int) Price { return p * Price(n) }

// DecimalString formats the price as "12.34".
func (p Price) DecimalString() string {
	if p < 0 {
		return "-" + p.Abs().DecimalString()
	}
	return fmt.Sprintf("%d.%02d", p.Dollars(), p.CentsPart())
}

// String formats the price in US style, e.g. "$12.34" or "-$12.34".
func (p Price) String() string {
	if p < 0 {
		return "-$" + p.Abs().DecimalString()
	}
	return "$" + p.DecimalString()
}

// Float returns the price in dollars for display.
func (p Price) Float() float64 { return float64(p) / 100 }

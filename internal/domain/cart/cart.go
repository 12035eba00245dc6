package cart

const AggregateType = "Cart"

// MaxPerOrder caps the quantity of a single product in one cart.
const MaxPerOrder = 99

// Item is one cart line. Quantity is always >= 1 in a reconciled cart.
type Item struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Cart holds at most one Item per product, in insertion order.
type Cart []Item

// MaxAllowed is the growth ceiling for a product given its live inventory.
func MaxAllowed(inventory int) int {
	if inventory < MaxPerOrder {
		return inventory
	}
	return MaxPerOrder
}

// Reconcile applies a quantity delta for productID and returns the new cart.
// The input cart is not modified.
//
//  - delta == 0 removes the line.
//  - delta > 0 grows the line (or inserts it), clamped to [1, maxAllowed].
//  - delta < 0 shrinks the line, removing it once it drops below 1;
//    shrinking is never clamped against maxAllowed. A missing line is a no-op.
func Reconcile(c Cart, productID, delta, maxAllowed int) Cart {
	out := c.Clone()
	idx := out.index(productID)

	switch {
	case delta == 0:
		if idx >= 0 {
			out = append(out[:idx], out[idx+1:]...)
		}
	case delta > 0:
		if idx >= 0 {
			out[idx].Quantity = clamp(out[idx].Quantity+delta, 1, maxAllowed)
		} else {
			out = append(out, Item{ProductID: productID, Quantity: clamp(delta, 1, maxAllowed)})
		}
	default:
		if idx < 0 {
			return out
		}
		q := out[idx].Quantity + delta
		if q < 1 {
			out = append(out[:idx], out[idx+1:]...)
		} else {
			out[idx].Quantity = q
		}
	}
	return out
}

// clamp bounds v to [lo, hi]; lo wins when hi < lo.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (c Cart) index(productID int) int {
	for i, item := range c {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Quantity returns the quantity for productID, or 0 when absent.
func (c Cart) Quantity(productID int) int {
	if i := c.index(productID); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

func (c Cart) IsEmpty() bool { return len(c) == 0 }

// ItemCount is the total number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// Normalize merges duplicate lines and drops non-positive quantities, which
// can only come from hand-edited or legacy stored data.
func Normalize(items []Item) Cart {
	out := Cart{}
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		if i := out.index(item.ProductID); i >= 0 {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}

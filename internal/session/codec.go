package session

import (
	"encoding/json"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/cart"
)

// EncodeCart serializes a cart to the stored JSON form. A nil cart encodes as "[]".
func EncodeCart(c cart.Cart) ([]byte, error) {
	if c == nil {
		c = cart.Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return data, nil
}

// DecodeCart parses stored cart data. Empty or null data is an empty cart.
// Anything unparsable yields ErrMalformedCart.
func DecodeCart(data []byte) (cart.Cart, error) {
	if len(data) == 0 || string(data) == "null" {
		return cart.Cart{}, nil
	}
	var items []cart.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return cart.Cart{}, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	return cart.Normalize(items), nil
}

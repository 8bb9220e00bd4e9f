package common

import (
	"fmt"
)

const (
	DefaultLotSize = 10
	DefaultPrice   = 2
)

// Order is a resting quantity at a single price. Orders are plain values:
// they are copied in and out of the store and replaced whole on update.
type Order struct {
	LotSize int `yaml:"lot_size"` // Number of units in the order
	Price   int `yaml:"price"`    // Price per unit, also the order's key within a symbol
}

func NewOrder(lotSize, price int) Order {
	return Order{LotSize: lotSize, Price: price}
}

// DefaultOrder is the order used when seeding symbols without explicit
// values.
func DefaultOrder() Order {
	return Order{LotSize: DefaultLotSize, Price: DefaultPrice}
}

func (order Order) String() string {
	return fmt.Sprintf("{lotSize: %d, price: %d}", order.LotSize, order.Price)
}

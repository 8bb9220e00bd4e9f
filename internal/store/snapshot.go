package store

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	. "orderstore/internal/common"
)

// SymbolOrders is every order resting on one symbol, sorted by price.
type SymbolOrders struct {
	Symbol string
	Orders []Order
}

// Snapshot is a point-in-time copy of the store. It shares no memory with
// the store and may be kept and read freely after it is taken.
type Snapshot struct {
	ID      uuid.UUID
	Taken   time.Time
	symbols []SymbolOrders // Sorted by symbol
}

type symbolLevels = btree.BTreeG[SymbolOrders]

// newSymbolLevels orders symbols ascending. The tree is only ever touched
// by the goroutine building the snapshot, so its own locking is disabled.
func newSymbolLevels() *symbolLevels {
	return btree.NewBTreeGOptions(func(a, b SymbolOrders) bool {
		return a.Symbol < b.Symbol
	}, btree.Options{NoLocks: true})
}

// sortedOrders copies a price index out into a price ascending slice.
func sortedOrders(prices map[int]Order) []Order {
	levels := btree.NewBTreeGOptions(func(a, b Order) bool {
		return a.Price < b.Price
	}, btree.Options{NoLocks: true})
	for _, order := range prices {
		levels.Set(order)
	}
	return levels.Items()
}

// Len returns the number of symbols captured.
func (snap Snapshot) Len() int {
	return len(snap.symbols)
}

func (snap Snapshot) Symbols() []string {
	symbols := make([]string, len(snap.symbols))
	for i, entry := range snap.symbols {
		symbols[i] = entry.Symbol
	}
	return symbols
}

// Orders returns the orders captured for symbol, sorted by price.
func (snap Snapshot) Orders(symbol string) ([]Order, bool) {
	i, ok := slices.BinarySearchFunc(snap.symbols, symbol, func(entry SymbolOrders, target string) int {
		return strings.Compare(entry.Symbol, target)
	})
	if !ok {
		return nil, false
	}
	return slices.Clone(snap.symbols[i].Orders), true
}

// Entries returns a copy of every captured symbol and its orders.
func (snap Snapshot) Entries() []SymbolOrders {
	entries := make([]SymbolOrders, len(snap.symbols))
	for i, entry := range snap.symbols {
		entries[i] = SymbolOrders{
			Symbol: entry.Symbol,
			Orders: slices.Clone(entry.Orders),
		}
	}
	return entries
}

// All lazily yields each symbol with its orders. Callers should not rely on
// the order of the sequence.
func (snap Snapshot) All() iter.Seq2[string, []Order] {
	return func(yield func(string, []Order) bool) {
		for _, entry := range snap.symbols {
			if !yield(entry.Symbol, slices.Clone(entry.Orders)) {
				return
			}
		}
	}
}

// WriteTo renders one line per symbol:
//
//	HDFCBANK: {lotSize: 10, price: 2} {lotSize: 15, price: 4}
func (snap Snapshot) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, entry := range snap.symbols {
		sb.WriteString(entry.Symbol)
		sb.WriteString(": ")
		for i, order := range entry.Orders {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(order.String())
		}
		sb.WriteString("\n")
	}

	n, err := io.WriteString(w, sb.String())
	if err != nil {
		return int64(n), fmt.Errorf("unable to write snapshot: %w", err)
	}
	return int64(n), nil
}

func (snap Snapshot) String() string {
	var sb strings.Builder
	_, _ = snap.WriteTo(&sb)
	return sb.String()
}

// Package store holds resting orders keyed by symbol and then by price.
//
// A single reader-writer lock guards the whole store. Insert and Remove hold
// the write lock for their full duration; reads hold the read lock and copy
// values out before releasing it, so no caller ever holds a reference into
// the store's maps.
//
// A Store needs no teardown. Dropping the last reference while another
// goroutine holds or waits on its lock is a caller error and is not guarded
// against.
package store

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	. "orderstore/internal/common"
)

type Store struct {
	mu sync.RWMutex
	// symbol -> price -> order
	symbols  map[string]map[int]Order
	reporter Reporter
}

type Option func(*Store)

// WithReporter sets the hook that receives store events. A nil reporter
// discards events.
func WithReporter(reporter Reporter) Option {
	return func(s *Store) {
		if reporter == nil {
			reporter = NopReporter{}
		}
		s.reporter = reporter
	}
}

// New creates an empty store. Events are logged through the global logger
// unless a reporter is supplied.
func New(opts ...Option) *Store {
	s := &Store{
		symbols:  make(map[string]map[int]Order),
		reporter: NewLogReporter(log.Logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert places order on symbol at order.Price. An existing order at the
// same price is replaced whole. The empty string is a valid symbol.
func (s *Store) Insert(symbol string, order Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices, ok := s.symbols[symbol]
	if !ok {
		prices = make(map[int]Order)
		s.symbols[symbol] = prices
	}

	kind := Inserted
	if _, exists := prices[order.Price]; exists {
		kind = Updated
	}
	prices[order.Price] = order

	s.reporter.Report(Event{
		Kind:   kind,
		Symbol: symbol,
		Order:  order,
	})
}

// Remove drops symbol and every order on it. Removing an unknown symbol
// changes nothing and is only reported as NotFound.
func (s *Store) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices, ok := s.symbols[symbol]
	if !ok {
		s.reporter.Report(Event{
			Kind:   NotFound,
			Symbol: symbol,
			Err:    ErrNotFound,
		})
		return
	}

	delete(s.symbols, symbol)
	s.reporter.Report(Event{
		Kind:   Removed,
		Symbol: symbol,
		Orders: len(prices),
	})
}

// Snapshot copies the whole store under a single read lock.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{ID: uuid.New()}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap.Taken = time.Now()
	levels := newSymbolLevels()
	for symbol, prices := range s.symbols {
		levels.Set(SymbolOrders{
			Symbol: symbol,
			Orders: sortedOrders(prices),
		})
	}
	snap.symbols = levels.Items()
	return snap
}

// Display writes a snapshot of the store to w, one line per symbol.
func (s *Store) Display(w io.Writer) error {
	_, err := s.Snapshot().WriteTo(w)
	return err
}

// Len returns the number of symbols holding at least one order.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.symbols)
}

func (s *Store) Get(symbol string, price int) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.symbols[symbol][price]
	return order, ok
}

// Orders returns a copy of the orders on symbol, sorted by price.
func (s *Store) Orders(symbol string) ([]Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices, ok := s.symbols[symbol]
	if !ok {
		return nil, false
	}
	return sortedOrders(prices), true
}

package store

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "orderstore/internal/common"
)

// --- Setup & Helpers --------------------------------------------------------

type MockReporter struct {
	mu     sync.Mutex
	events []Event
}

func (r *MockReporter) Report(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *MockReporter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *MockReporter) Kinds() []EventKind {
	var kinds []EventKind
	for _, event := range r.Events() {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func createTestStore() (*Store, *MockReporter) {
	reporter := &MockReporter{}
	return New(WithReporter(reporter)), reporter
}

var testSymbols = []string{
	"NESTLEIND", "HDFCBANK", "RELIANCE", "TCS", "INFY",
	"SBIN", "ICICIBANK", "LT", "BAJFINANCE", "HINDUNILVR",
}

// --- Tests ------------------------------------------------------------------

func TestInsert_UpdateSamePrice(t *testing.T) {
	s, reporter := createTestStore()

	s.Insert("X", NewOrder(10, 2))
	s.Insert("X", NewOrder(20, 2))

	orders, ok := s.Snapshot().Orders("X")
	require.True(t, ok)
	assert.Equal(t, []Order{{LotSize: 20, Price: 2}}, orders)
	assert.Equal(t, []EventKind{Inserted, Updated}, reporter.Kinds())
}

func TestInsert_NewPrice(t *testing.T) {
	s, reporter := createTestStore()

	s.Insert("X", NewOrder(10, 2))
	s.Insert("X", NewOrder(15, 4))

	orders, ok := s.Snapshot().Orders("X")
	require.True(t, ok)
	assert.Equal(t, []Order{{LotSize: 10, Price: 2}, {LotSize: 15, Price: 4}}, orders)
	assert.Equal(t, []EventKind{Inserted, Inserted}, reporter.Kinds())
}

func TestInsert_LastWriteWins(t *testing.T) {
	s, _ := createTestStore()

	for lot := 1; lot <= 50; lot++ {
		s.Insert("X", NewOrder(lot, 7))
	}

	order, ok := s.Get("X", 7)
	require.True(t, ok)
	assert.Equal(t, NewOrder(50, 7), order)

	orders, _ := s.Orders("X")
	assert.Len(t, orders, 1, "one entry per distinct price")
}

func TestInsert_EmptySymbol(t *testing.T) {
	s, _ := createTestStore()

	s.Insert("", NewOrder(1, 1))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{""}, s.Snapshot().Symbols())
}

func TestInsert_EventCarriesOrder(t *testing.T) {
	s, reporter := createTestStore()

	s.Insert("TCS", NewOrder(15, 4))

	assert.Equal(t, []Event{{
		Kind:   Inserted,
		Symbol: "TCS",
		Order:  NewOrder(15, 4),
	}}, reporter.Events())
}

func TestRemove(t *testing.T) {
	s, reporter := createTestStore()

	for _, symbol := range testSymbols {
		s.Insert(symbol, DefaultOrder())
	}
	s.Insert("HDFCBANK", NewOrder(15, 4))
	s.Remove("HDFCBANK")

	snap := s.Snapshot()
	assert.Equal(t, 9, snap.Len())
	_, ok := snap.Orders("HDFCBANK")
	assert.False(t, ok)
	for symbol, orders := range snap.All() {
		assert.Equal(t, []Order{DefaultOrder()}, orders, symbol)
	}

	events := reporter.Events()
	assert.Equal(t, Event{Kind: Removed, Symbol: "HDFCBANK", Orders: 2}, events[len(events)-1])
}

func TestRemove_ThenReinsert(t *testing.T) {
	s, _ := createTestStore()

	s.Insert("X", NewOrder(10, 2))
	s.Insert("X", NewOrder(10, 3))
	s.Remove("X")
	s.Insert("X", NewOrder(5, 9))

	orders, ok := s.Orders("X")
	require.True(t, ok)
	assert.Equal(t, []Order{NewOrder(5, 9)}, orders, "old prices must not come back")
}

func TestRemove_NotFound(t *testing.T) {
	s, reporter := createTestStore()

	// Empty store.
	s.Remove("NONEXISTENT")
	assert.Equal(t, 0, s.Len())

	// Populated store.
	s.Insert("X", NewOrder(10, 2))
	before := s.Snapshot().Entries()
	s.Remove("NONEXISTENT")
	assert.Equal(t, before, s.Snapshot().Entries())

	assert.Equal(t, []EventKind{NotFound, Inserted, NotFound}, reporter.Kinds())
	for _, event := range reporter.Events() {
		if event.Kind == NotFound {
			assert.ErrorIs(t, event.Err, ErrNotFound)
			assert.Equal(t, "NONEXISTENT", event.Symbol)
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, _ := createTestStore()
	s.Insert("X", NewOrder(10, 2))

	snap := s.Snapshot()
	orders, _ := snap.Orders("X")
	orders[0].LotSize = 999
	for _, entry := range snap.Entries() {
		entry.Orders[0].LotSize = 999
	}

	// Neither the store nor the snapshot itself observe caller mutations.
	stored, _ := s.Get("X", 2)
	assert.Equal(t, 10, stored.LotSize)
	again, _ := snap.Orders("X")
	assert.Equal(t, 10, again[0].LotSize)

	// Later writes do not leak into an earlier snapshot.
	s.Insert("X", NewOrder(20, 2))
	s.Insert("Y", NewOrder(1, 1))
	again, _ = snap.Orders("X")
	assert.Equal(t, 10, again[0].LotSize)
	assert.Equal(t, 1, snap.Len())
}

func TestSnapshot_Identity(t *testing.T) {
	s, _ := createTestStore()

	a := s.Snapshot()
	b := s.Snapshot()
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Taken.IsZero())
	assert.False(t, b.Taken.Before(a.Taken))
}

func TestSnapshot_AllStopsEarly(t *testing.T) {
	s, _ := createTestStore()
	for _, symbol := range testSymbols {
		s.Insert(symbol, DefaultOrder())
	}

	seen := 0
	for range s.Snapshot().All() {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestDisplay(t *testing.T) {
	s, _ := createTestStore()
	s.Insert("NESTLEIND", NewOrder(10, 2))
	s.Insert("HDFCBANK", NewOrder(10, 2))
	s.Insert("HDFCBANK", NewOrder(15, 4))

	var buf bytes.Buffer
	require.NoError(t, s.Display(&buf))

	assert.Equal(t,
		"HDFCBANK: {lotSize: 10, price: 2} {lotSize: 15, price: 4}\n"+
			"NESTLEIND: {lotSize: 10, price: 2}\n",
		buf.String(),
	)
}

func TestDisplay_Empty(t *testing.T) {
	s, _ := createTestStore()

	var buf bytes.Buffer
	require.NoError(t, s.Display(&buf))
	assert.Empty(t, buf.String())
}

// Reports are delivered while the write lock is held.
func TestReporter_CalledUnderWriteLock(t *testing.T) {
	var s *Store
	calls := 0
	s = New(WithReporter(ReporterFunc(func(event Event) {
		calls++
		locked := s.mu.TryRLock()
		if locked {
			s.mu.RUnlock()
		}
		assert.False(t, locked, "reader acquired lock during %v", event.Kind)
	})))

	s.Insert("X", NewOrder(1, 1))
	s.Insert("X", NewOrder(2, 1))
	s.Remove("X")
	s.Remove("X")
	assert.Equal(t, 4, calls)
}

func TestWithReporter_Nil(t *testing.T) {
	s := New(WithReporter(nil))
	assert.NotPanics(t, func() {
		s.Insert("X", NewOrder(1, 1))
		s.Remove("X")
		s.Remove("X")
	})
}

// Writers insert increasing prices on their own symbol while readers take
// snapshots. Every symbol seen must hold exactly the prices 1..n for some n:
// a prefix of that writer's completed inserts.
func TestConcurrent_SnapshotsNeverTorn(t *testing.T) {
	const (
		writers = 8
		readers = 4
		prices  = 200
	)
	s := New(WithReporter(NopReporter{}))

	var wg sync.WaitGroup
	done := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			for price := 1; price <= prices; price++ {
				s.Insert(symbol, NewOrder(price*10, price))
			}
		}(fmt.Sprintf("SYM%d", w))
	}

	var readerWg sync.WaitGroup
	for r := 0; r < readers; r++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for symbol, orders := range s.Snapshot().All() {
					if !assert.NotEmpty(t, orders, symbol) {
						return
					}
					for i, order := range orders {
						if !assert.Equal(t, NewOrder((i+1)*10, i+1), order, symbol) {
							return
						}
					}
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	readerWg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, writers, snap.Len())
	for symbol, orders := range snap.All() {
		assert.Len(t, orders, prices, symbol)
	}
}

// Inserts and removals racing on the same symbols must leave each symbol
// either absent or holding only whole orders.
func TestConcurrent_InsertRemove(t *testing.T) {
	s := New(WithReporter(NopReporter{}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Insert(testSymbols[j%len(testSymbols)], NewOrder(j, j%5))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Remove(testSymbols[j%len(testSymbols)])
			}
		}()
	}
	wg.Wait()

	for symbol, orders := range s.Snapshot().All() {
		assert.NotEmpty(t, orders, symbol)
		for _, order := range orders {
			stored, ok := s.Get(symbol, order.Price)
			assert.True(t, ok)
			assert.Equal(t, order, stored)
		}
	}
}

package store

import (
	"errors"

	"github.com/rs/zerolog"

	. "orderstore/internal/common"
)

var (
	ErrNotFound = errors.New("no orders found for symbol")
)

type EventKind int

const (
	// A new price was added to a symbol.
	Inserted EventKind = iota
	// An existing price was overwritten with a new order.
	Updated
	// A symbol was dropped together with all of its orders.
	Removed
	// A removal named a symbol the store does not hold.
	NotFound
)

var eventKindName = map[EventKind]string{
	Inserted: "inserted",
	Updated:  "updated",
	Removed:  "removed",
	NotFound: "not found",
}

func (k EventKind) String() string {
	if name, ok := eventKindName[k]; ok {
		return name
	}
	return "unknown"
}

// Event describes a single mutation (or attempted mutation) of the store.
type Event struct {
	Kind   EventKind
	Symbol string
	Order  Order // Set for Inserted and Updated
	Orders int   // Number of orders dropped, set for Removed
	Err    error // ErrNotFound for NotFound, nil otherwise
}

// Reporter receives store events. Report is called while the store's write
// lock is held, so events arrive in mutation order and a Reporter must not
// call back into the store that emitted them.
type Reporter interface {
	Report(event Event)
}

// ReporterFunc adapts a plain function to a Reporter.
type ReporterFunc func(event Event)

func (f ReporterFunc) Report(event Event) {
	f(event)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Report(Event) {}

// LogReporter writes events as structured log lines.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(event Event) {
	switch event.Kind {
	case Inserted:
		r.logger.Info().
			Str("symbol", event.Symbol).
			Int("price", event.Order.Price).
			Int("lot_size", event.Order.LotSize).
			Msg("inserted order")
	case Updated:
		r.logger.Info().
			Str("symbol", event.Symbol).
			Int("price", event.Order.Price).
			Int("lot_size", event.Order.LotSize).
			Msg("updated order")
	case Removed:
		r.logger.Info().
			Str("symbol", event.Symbol).
			Int("orders", event.Orders).
			Msg("removed orders")
	case NotFound:
		r.logger.Warn().
			Err(event.Err).
			Str("symbol", event.Symbol).
			Msg("nothing to remove")
	}
}

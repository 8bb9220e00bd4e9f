// Package driver runs the demonstration sequence against a store: seed a
// list of symbols concurrently, add a few extra price points, then display
// and remove symbols.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"orderstore/internal/config"
	"orderstore/internal/store"
	"orderstore/internal/utils"
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrTornSnapshot       = errors.New("torn snapshot")
)

func Run(ctx context.Context, st *store.Store, cfg *config.Config, out io.Writer) error {
	if err := seed(ctx, st, cfg); err != nil {
		return err
	}

	for _, extra := range cfg.Extra {
		st.Insert(extra.Symbol, extra.Order)
	}

	if _, err := fmt.Fprintln(out, "Initial Map State:"); err != nil {
		return err
	}
	if err := st.Display(out); err != nil {
		return err
	}

	if len(cfg.Remove) == 0 {
		return nil
	}

	st.Remove(cfg.Remove[0])
	if _, err := fmt.Fprintln(out, "\nMap State after Removal:"); err != nil {
		return err
	}
	if err := st.Display(out); err != nil {
		return err
	}

	for _, symbol := range cfg.Remove[1:] {
		st.Remove(symbol)
	}
	return nil
}

// seed inserts the default order on every symbol through a worker pool,
// while readers snapshot the store and check every view they get.
func seed(ctx context.Context, st *store.Store, cfg *config.Config) error {
	pool := utils.NewWorkerPool(cfg.Workers)
	writers, ctx := tomb.WithContext(ctx)
	pool.Setup(writers, func(_ *tomb.Tomb, task any) error {
		symbol, ok := task.(string)
		if !ok {
			return ErrImproperConversion
		}
		st.Insert(symbol, cfg.Default)
		return nil
	})

	var readers *tomb.Tomb
	if cfg.Readers > 0 {
		readers = &tomb.Tomb{}
		readers.Go(func() error {
			for id := 0; id < cfg.Readers; id++ {
				readers.Go(func() error {
					return watch(readers, st, id)
				})
			}
			return nil
		})
	}

	var addErr error
	for _, symbol := range cfg.Symbols {
		if addErr = pool.AddTask(ctx, symbol); addErr != nil {
			break
		}
	}
	pool.Close()
	writeErr := writers.Wait()

	if readers != nil {
		readers.Kill(nil)
		if err := readers.Wait(); err != nil {
			return err
		}
	}
	if writeErr != nil {
		return fmt.Errorf("unable to seed store: %w", writeErr)
	}
	if addErr != nil {
		return fmt.Errorf("unable to seed store: %w", addErr)
	}

	log.Info().
		Int("symbols", len(cfg.Symbols)).
		Int("workers", pool.Size()).
		Msg("store seeded")
	return nil
}

// watch takes snapshots until t starts dying.
func watch(t *tomb.Tomb, st *store.Store, id int) error {
	taken := 0
	for {
		select {
		case <-t.Dying():
			log.Debug().Int("id", id).Int("snapshots", taken).Msg("reader exiting")
			return nil
		default:
			snap := st.Snapshot()
			taken++
			if err := CheckSnapshot(snap); err != nil {
				log.Error().
					Err(err).
					Str("snapshot", snap.ID.String()).
					Int("id", id).
					Msg("inconsistent snapshot")
				return err
			}
		}
	}
}

// CheckSnapshot reports whether snap could have been produced by some
// sequence of whole inserts and removals: every symbol holds at least one
// order and no price appears twice within a symbol.
func CheckSnapshot(snap store.Snapshot) error {
	for symbol, orders := range snap.All() {
		if len(orders) == 0 {
			return fmt.Errorf("%w: symbol %q has no orders", ErrTornSnapshot, symbol)
		}
		seen := make(map[int]struct{}, len(orders))
		for _, order := range orders {
			if _, dup := seen[order.Price]; dup {
				return fmt.Errorf("%w: symbol %q repeats price %d", ErrTornSnapshot, symbol, order.Price)
			}
			seen[order.Price] = struct{}{}
		}
	}
	return nil
}

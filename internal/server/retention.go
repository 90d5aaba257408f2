package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/store"
)

// RetentionSweeper purges history records older than the configured age on a
// cron schedule.
type RetentionSweeper struct {
	store  *store.Store
	index  *store.Index
	expr   *cronexpr.Expression
	maxAge time.Duration
	stop   chan struct{}
	logger *log.Logger
}

func NewRetentionSweeper(st *store.Store, idx *store.Index, cfg config.RetentionConfig) (*RetentionSweeper, error) {
	expr, err := cronexpr.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("retention cron %q: %w", cfg.Cron, err)
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("retention.max_age must be positive")
	}
	return &RetentionSweeper{
		store:  st,
		index:  idx,
		expr:   expr,
		maxAge: cfg.MaxAge,
		stop:   make(chan struct{}),
		logger: log.New(log.Writer(), "[RETENTION] ", log.LstdFlags),
	}, nil
}

func (r *RetentionSweeper) Start() {
	go func() {
		for {
			next := r.expr.Next(time.Now())
			select {
			case <-time.After(time.Until(next)):
				r.sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *RetentionSweeper) Stop() { close(r.stop) }

func (r *RetentionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cutoff := time.Now().Add(-r.maxAge)
	ids, err := r.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		r.logger.Printf("sweep failed: %v", err)
		return
	}
	if r.index != nil {
		for _, id := range ids {
			if err := r.index.Remove(id); err != nil {
				r.logger.Printf("dropping %s from index: %v", id, err)
			}
		}
	}
	r.logger.Printf("purged %d records older than %s", len(ids), cutoff.Format(time.RFC3339))
}

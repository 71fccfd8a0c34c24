package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/critique/pkg/domain/critique"
)

const persistTimeout = 10 * time.Second

// VariantGenerator produces the text of one variant.
type VariantGenerator func(ctx context.Context) (string, error)

// VariantCache holds the rendered variants of one session's PointSet. All
// entries belong to the current epoch; Advance drops them in one step.
type VariantCache struct {
	mu      sync.Mutex
	epoch   uint64
	entries map[critique.VariantKey]critique.Variant
	flight  singleflight.Group

	log      critique.AnalysisLog
	logger   *slog.Logger
	persists sync.WaitGroup
}

// NewVariantCache creates an empty cache at epoch 0. log may be nil.
func NewVariantCache(log critique.AnalysisLog, logger *slog.Logger) *VariantCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &VariantCache{
		entries: make(map[critique.VariantKey]critique.Variant),
		log:     log,
		logger:  logger,
	}
}

// Epoch returns the current epoch.
func (c *VariantCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Key returns the key for level and tone at the current epoch.
func (c *VariantCache) Key(level critique.SimplificationLevel, tone critique.Tone) critique.VariantKey {
	return critique.VariantKey{Level: level, Tone: tone, Epoch: c.Epoch()}
}

// Advance discards every entry and returns the new epoch.
func (c *VariantCache) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[critique.VariantKey]critique.Variant)
	epochAdvances.Inc()
	return c.epoch
}

// Seed stores text as a ready variant without generating or persisting it.
func (c *VariantCache) Seed(key critique.VariantKey, text string) (critique.Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.Epoch != c.epoch {
		return critique.Variant{}, fmt.Errorf("seed %s: %w", key, critique.ErrStaleResult)
	}
	v := critique.NewVariant(key, text)
	c.entries[key] = v
	return v.Clone(), nil
}

// SeedAndPersist seeds key with text and records it in the analysis log.
func (c *VariantCache) SeedAndPersist(ctx context.Context, key critique.VariantKey, text string) (critique.Variant, error) {
	v, err := c.Seed(key, text)
	if err != nil {
		return critique.Variant{}, err
	}
	c.persist(ctx, v)
	return v, nil
}

// Lookup returns a ready variant for key if one is cached.
func (c *VariantCache) Lookup(key critique.VariantKey) (critique.Variant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.Epoch != c.epoch {
		return critique.Variant{}, false
	}
	v, ok := c.entries[key]
	if !ok || v.Status != critique.VariantReady {
		return critique.Variant{}, false
	}
	return v.Clone(), true
}

// Status reports the state of key's entry, if any.
func (c *VariantCache) Status(key critique.VariantKey) (critique.VariantStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key.Epoch != c.epoch {
		return "", false
	}
	v, ok := c.entries[key]
	return v.Status, ok
}

// Len returns the number of entries in the current epoch.
func (c *VariantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCreate returns the cached variant for key or generates it. Concurrent
// callers for the same key share one generation. Keys from an earlier epoch
// always regenerate and their results are returned but never stored.
func (c *VariantCache) GetOrCreate(ctx context.Context, key critique.VariantKey, generate VariantGenerator) (critique.Variant, error) {
	c.mu.Lock()
	if key.Epoch > c.epoch {
		current := c.epoch
		c.mu.Unlock()
		return critique.Variant{}, fmt.Errorf("%s (current epoch %d): %w", key, current, critique.ErrFutureEpoch)
	}
	if key.Epoch == c.epoch {
		if v, ok := c.entries[key]; ok {
			if v.Status == critique.VariantReady {
				c.mu.Unlock()
				variantRequests.WithLabelValues("hit").Inc()
				return v.Clone(), nil
			}
		}
		if v, ok := c.entries[key]; !ok || v.Status == critique.VariantFailed {
			c.entries[key] = critique.Variant{Key: key, Status: critique.VariantPending}
		}
	}
	c.mu.Unlock()

	res, err, shared := c.flight.Do(key.String(), func() (interface{}, error) {
		return c.resolve(ctx, key, generate)
	})
	if shared {
		variantRequests.WithLabelValues("shared").Inc()
	} else {
		variantRequests.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return critique.Variant{}, err
	}
	return res.(critique.Variant).Clone(), nil
}

// resolve runs inside the flight for key. An earlier flight may have stored
// key after GetOrCreate checked the map, so the entry is looked up again.
func (c *VariantCache) resolve(ctx context.Context, key critique.VariantKey, generate VariantGenerator) (critique.Variant, error) {
	if v, ok := c.Lookup(key); ok {
		return v, nil
	}
	return c.generate(ctx, key, generate)
}

func (c *VariantCache) generate(ctx context.Context, key critique.VariantKey, generate VariantGenerator) (critique.Variant, error) {
	start := time.Now()
	text, err := generate(ctx)
	var v critique.Variant
	if err == nil {
		v = critique.NewVariant(key, text)
		if len(v.Points) == 0 {
			err = critique.ErrEmptyGeneration
		}
	}
	observeGeneration(critique.StageVariant, start, err)

	c.mu.Lock()
	current := key.Epoch == c.epoch
	if err != nil {
		if current {
			c.entries[key] = critique.Variant{Key: key, Status: critique.VariantFailed, Err: err.Error()}
		}
		c.mu.Unlock()
		return critique.Variant{}, &critique.GenerationError{Stage: critique.StageVariant, Err: err}
	}
	if !current {
		c.mu.Unlock()
		recordStale(critique.StageVariant)
		c.logger.Debug("variant resolved for superseded epoch", "key", key.String())
		return v, nil
	}
	c.entries[key] = v
	c.mu.Unlock()

	c.persist(ctx, v)
	return v, nil
}

// persist writes v to the analysis log in the background. Failures are
// logged and counted.
func (c *VariantCache) persist(ctx context.Context, v critique.Variant) {
	if c.log == nil {
		return
	}
	points := v.Points.Clone()
	c.persists.Add(1)
	go func() {
		defer c.persists.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := c.log.Persist(pctx, points, v.Key.Tone, v.Key.Level); err != nil {
			persistFailures.Inc()
			c.logger.Warn("failed to persist analysis", "key", v.Key.String(), "error", err)
		}
	}()
}

// Wait blocks until background persistence has finished.
func (c *VariantCache) Wait() {
	c.persists.Wait()
}

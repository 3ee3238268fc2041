package timing

import (
	"github.com/san-kum/pulsetiming/internal/toa"
)

const (
	keyTotalDelay  = "total_delay"
	keyBarycentric = "barycentric_correction"
)

// Eval is one evaluation of a model over a batch. Components receive it in
// every contribution and derivative call.
type Eval struct {
	model *Model
	batch *toa.Batch
	cache *Cache
}

// NewEval binds the model's cache to b.
func (m *Model) NewEval(b *toa.Batch) *Eval {
	return &Eval{model: m, batch: b, cache: m.cache}
}

// uncached evaluates without memoization, for perturbed parameter values.
func (m *Model) uncached(b *toa.Batch) *Eval {
	return &Eval{model: m, batch: b}
}

func (ev *Eval) Model() *Model     { return ev.model }
func (ev *Eval) Batch() *toa.Batch { return ev.batch }
func (ev *Eval) Cache() *Cache     { return ev.cache }
func (ev *Eval) Len() int          { return ev.batch.Len() }

func (ev *Eval) enter() (release func()) { return ev.cache.Enter() }

// WithBatch evaluates the same model and cache over another batch. The
// cache scope is not shared, since memoized values belong to one batch.
func (ev *Eval) WithBatch(b *toa.Batch) *Eval {
	return &Eval{model: ev.model, batch: b}
}

// Memo returns the value stored under key in the active cache scope, or
// computes, stores and returns it. Without an active scope fn always runs.
func Memo[T any](ev *Eval, key string, fn func() (T, error)) (T, error) {
	if !ev.cache.Active() {
		return fn()
	}
	if v, ok := ev.cache.get(key); ok {
		ev.model.logger.Debug("cache hit", "key", key)
		return v.(T), nil
	}
	ev.model.logger.Debug("cache miss", "key", key)
	v, err := fn()
	if err != nil {
		return v, err
	}
	ev.cache.put(key, v)
	return v, nil
}

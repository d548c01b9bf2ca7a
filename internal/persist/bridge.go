package persist

import (
	"context"
	"fmt"

	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
	"github.com/cliniquerisimed-lab/jongwane/internal/store"
)

// Bridge reads and writes the whole persisted state under one versioned key.
type Bridge struct {
	kv  store.KV
	key string
	log logger.Logger
}

func NewBridge(kv store.KV, key string, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bridge{kv: kv, key: key, log: log}
}

func (b *Bridge) Key() string {
	return b.key
}

// Load never fails: an absent, unreadable or mismatched value yields the
// empty state.
func (b *Bridge) Load(ctx context.Context) State {
	raw, found, err := b.kv.Get(ctx, b.key)
	if err != nil {
		b.log.Error("persist", "read saved state failed", map[string]any{"key": b.key, "error": err.Error()})
		return State{}
	}
	if !found {
		b.log.Info("persist", "no saved state", map[string]any{"key": b.key})
		return State{}
	}
	st, err := Decode([]byte(raw))
	if err != nil {
		b.log.Warn("persist", "ignoring saved state with unexpected shape", map[string]any{"key": b.key, "error": err.Error()})
		return State{}
	}
	b.log.Info("persist", "saved state loaded", map[string]any{
		"key":       b.key,
		"responses": len(st.Responses),
		"notes":     len(st.Notes),
		"documents": len(st.Documents),
	})
	return st
}

func (b *Bridge) Save(ctx context.Context, st State) error {
	raw, err := Encode(st)
	if err != nil {
		return err
	}
	if err := b.kv.Set(ctx, b.key, string(raw)); err != nil {
		b.log.Error("persist", "write state failed", map[string]any{"key": b.key, "error": err.Error()})
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

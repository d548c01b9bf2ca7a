package catalog

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDAllocator hands out candidate document ids. The store rejects
// candidates that collide and asks again.
type IDAllocator interface {
	NewID() string
}

type UUIDAllocator struct{}

func (UUIDAllocator) NewID() string {
	return "custom-" + uuid.NewString()
}

// CounterAllocator yields custom-1, custom-2, ... and is deterministic.
type CounterAllocator struct {
	next atomic.Uint64
}

func (a *CounterAllocator) NewID() string {
	return fmt.Sprintf("custom-%d", a.next.Add(1))
}

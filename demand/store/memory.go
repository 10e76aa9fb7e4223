// Package store provides Record Store implementations.
package store

import (
	"sync/atomic"

	"github.com/warp/demand-engine/demand"
)

// =============================================================================
// MEMORY STORE - In-memory Record Store with atomic snapshot swap
// =============================================================================

type Memory struct {
	current atomic.Pointer[demand.Dataset]
}

func NewMemory() *Memory {
	return &Memory{}
}

// Snapshot returns the dataset installed by the most recent Replace.
func (m *Memory) Snapshot() (*demand.Dataset, error) {
	ds := m.current.Load()
	if ds == nil {
		return nil, demand.ErrNoData
	}
	return ds, nil
}

// Replace swaps in ds. In-flight readers keep the dataset they loaded.
func (m *Memory) Replace(ds *demand.Dataset) {
	m.current.Store(ds)
}

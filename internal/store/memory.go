package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

type memCollection struct {
	revision int64
	records  []json.RawMessage
}

// Memory is an in-process KeyedStore.
type Memory struct {
	mu   sync.Mutex
	data map[string]*memCollection
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]*memCollection)}
}

func (m *Memory) ReadCollection(_ context.Context, name string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.data[name]
	if !ok {
		return Snapshot{}, nil
	}
	return Snapshot{
		Records:  cloneRecords(col.records),
		Revision: strconv.FormatInt(col.revision, 10),
	}, nil
}

func (m *Memory) WriteCollection(_ context.Context, name string, records []json.RawMessage, expectedRevision string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.data[name]
	current := ""
	if ok {
		current = strconv.FormatInt(col.revision, 10)
	}
	if current != expectedRevision {
		return ErrStaleRevision
	}

	if !ok {
		col = &memCollection{}
		m.data[name] = col
	}
	col.revision++
	col.records = cloneRecords(records)
	return nil
}

func cloneRecords(in []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(in))
	for i, r := range in {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}

package event

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryLog is an in-memory event log for tests and local runs. Appending an
// event whose keys match an existing record replaces it, mirroring the
// replace-on-same-key behavior of the durable backend.
type MemoryLog struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		records: make(map[string]Record),
	}
}

func (l *MemoryLog) Append(ctx context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		PK:         ev.PartitionKey(),
		SK:         ev.SortKey(),
		EventType:  ev.EventType(),
		Timestamp:  ev.Timestamp(),
		Attributes: ev.Attributes(),
	}
	l.records[rec.PK+"|"+rec.SK] = rec
	return nil
}

func (l *MemoryLog) ListBySource(ctx context.Context, source string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pk := eventPK(source)
	var out []Record
	for key, rec := range l.records {
		if strings.HasPrefix(key, pk+"|") {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out, nil
}

func (l *MemoryLog) Close() error {
	return nil
}

// Len reports the number of stored records.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

package history

import (
	"context"
	"iter"
	"slices"

	historyDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/history"
	"github.com/frahmantamala/key-management/internal/storage"
)

// Log is an immutable snapshot of the keyHistory collection, kept in
// insertion order. Append returns the next snapshot.
type Log struct {
	records []Record
}

func NewLog(records []Record) *Log {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Log{records: cp}
}

func LoadLog(ctx context.Context, store storage.BlobStore) (*Log, error) {
	raw, err := storage.LoadCollection[historyDatamodel.Record](ctx, store, storage.CollectionHistory)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for i := range raw {
		records = append(records, *FromDataModel(&raw[i]))
	}
	return &Log{records: records}, nil
}

func (l *Log) Save(ctx context.Context, store storage.BlobStore) error {
	raw := make([]historyDatamodel.Record, 0, len(l.records))
	for i := range l.records {
		raw = append(raw, *ToDataModel(&l.records[i]))
	}
	return storage.SaveCollection(ctx, store, storage.CollectionHistory, raw)
}

func (l *Log) Len() int {
	return len(l.records)
}

func (l *Log) Append(r Record) *Log {
	next := make([]Record, len(l.records), len(l.records)+1)
	copy(next, l.records)
	return &Log{records: append(next, r)}
}

// Query yields the records matching f, newest timestamp first. Records
// with equal timestamps come newest insertion first. The sequence can be
// ranged over any number of times and always reflects this snapshot.
func (l *Log) Query(f Filter) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		yielded := 0
		for _, r := range l.sorted() {
			if !f.Matches(&r) {
				continue
			}
			if !yield(r) {
				return
			}
			yielded++
			if f.Limit > 0 && yielded >= f.Limit {
				return
			}
		}
	}
}

func (l *Log) sorted() []Record {
	view := make([]Record, len(l.records))
	for i, r := range l.records {
		view[len(l.records)-1-i] = r
	}
	slices.SortStableFunc(view, func(a, b Record) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return view
}

package key

import (
	"context"
	"time"

	"github.com/frahmantamala/key-management/internal"
	keyDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/key"
	"github.com/frahmantamala/key-management/internal/storage"
	"github.com/google/uuid"
)

// Registry is an immutable snapshot of the keys collection. Mutations
// return the next snapshot.
type Registry struct {
	keys []Key
}

func NewRegistry(keys []Key) *Registry {
	cp := make([]Key, len(keys))
	copy(cp, keys)
	return &Registry{keys: cp}
}

func LoadRegistry(ctx context.Context, store storage.BlobStore) (*Registry, error) {
	records, err := storage.LoadCollection[keyDatamodel.Key](ctx, store, storage.CollectionKeys)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(records))
	for i := range records {
		keys = append(keys, *FromDataModel(&records[i]))
	}
	return &Registry{keys: keys}, nil
}

func (r *Registry) Save(ctx context.Context, store storage.BlobStore) error {
	records := make([]keyDatamodel.Key, 0, len(r.keys))
	for i := range r.keys {
		records = append(records, *ToDataModel(&r.keys[i]))
	}
	return storage.SaveCollection(ctx, store, storage.CollectionKeys, records)
}

func (r *Registry) Len() int {
	return len(r.keys)
}

func (r *Registry) List() []Key {
	cp := make([]Key, len(r.keys))
	copy(cp, r.keys)
	return cp
}

func (r *Registry) CountAvailable() int {
	n := 0
	for i := range r.keys {
		if r.keys[i].Available {
			n++
		}
	}
	return n
}

func (r *Registry) FindByBarcode(code string) (Key, bool) {
	idx := r.indexWhere(func(k *Key) bool { return k.Barcode == code })
	if idx < 0 {
		return Key{}, false
	}
	return r.keys[idx], true
}

func (r *Registry) FindByID(id string) (Key, bool) {
	idx := r.indexOf(id)
	if idx < 0 {
		return Key{}, false
	}
	return r.keys[idx], true
}

// Insert adds candidate as a new available key with a fresh id.
func (r *Registry) Insert(candidate Key) (*Registry, Key, error) {
	if _, exists := r.FindByBarcode(candidate.Barcode); exists {
		return nil, Key{}, internal.ErrDuplicateBarcode
	}

	candidate.ID = uuid.NewString()
	candidate.Available = true
	candidate.TakenBy = ""
	candidate.TakenAt = nil

	next := make([]Key, len(r.keys), len(r.keys)+1)
	copy(next, r.keys)
	return &Registry{keys: append(next, candidate)}, candidate, nil
}

// Remove deletes the key whatever its availability.
func (r *Registry) Remove(id string) (*Registry, Key, bool) {
	idx := r.indexOf(id)
	if idx < 0 {
		return r, Key{}, false
	}
	removed := r.keys[idx]
	next := make([]Key, 0, len(r.keys)-1)
	next = append(next, r.keys[:idx]...)
	next = append(next, r.keys[idx+1:]...)
	return &Registry{keys: next}, removed, true
}

func (r *Registry) MarkTaken(id, holderName string, at time.Time) (*Registry, Key, error) {
	return r.transition(id, func(k *Key) error {
		if !k.Available {
			return internal.ErrKeyAlreadyIssued
		}
		taken := at
		k.Available = false
		k.TakenBy = holderName
		k.TakenAt = &taken
		return nil
	})
}

func (r *Registry) MarkReturned(id string) (*Registry, Key, error) {
	return r.transition(id, func(k *Key) error {
		if k.Available {
			return internal.ErrKeyAlreadyAvailable
		}
		k.Available = true
		k.TakenBy = ""
		k.TakenAt = nil
		return nil
	})
}

func (r *Registry) transition(id string, apply func(*Key) error) (*Registry, Key, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return nil, Key{}, internal.ErrKeyNotFound
	}
	next := r.List()
	if err := apply(&next[idx]); err != nil {
		return nil, Key{}, err
	}
	return &Registry{keys: next}, next[idx], nil
}

func (r *Registry) indexOf(id string) int {
	return r.indexWhere(func(k *Key) bool { return k.ID == id })
}

func (r *Registry) indexWhere(match func(*Key) bool) int {
	for i := range r.keys {
		if match(&r.keys[i]) {
			return i
		}
	}
	return -1
}

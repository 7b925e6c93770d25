package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadCollection decodes a JSON array collection. A collection that was
// never saved decodes to an empty slice.
func LoadCollection[T any](ctx context.Context, store BlobStore, name string) ([]T, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// SaveCollection encodes items as a JSON array and writes it as one blob.
func SaveCollection[T any](ctx context.Context, store BlobStore, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", name, err)
	}
	return store.Save(ctx, name, data)
}

package routingmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
	"github.com/arkilian/pkrouting/internal/storage"
)

// ObjectPath is where the published routing map of container lives in an
// object store.
func ObjectPath(container string) string {
	return path.Join("routing", container, "ranges.json")
}

// Publish writes m to store in the {"PartitionKeyRanges": [...]} form.
func Publish(ctx context.Context, store storage.ObjectStore, container string, m *Map) error {
	data, err := json.Marshal(map[string][]PartitionKeyRange{rangesField: m.ranges})
	if err != nil {
		return pkerrors.NewInternalError("failed to encode routing map", err)
	}
	if err := store.Put(ctx, ObjectPath(container), data); err != nil {
		return pkerrors.NewStorageError(pkerrors.CodeSnapshotWrite,
			fmt.Sprintf("failed to publish routing map for %s", container), err)
	}
	return nil
}

// Fetch reads the routing map of container published by Publish.
func Fetch(ctx context.Context, store storage.ObjectStore, container string, opts ...Option) (*Map, error) {
	data, err := store.Get(ctx, ObjectPath(container))
	if err != nil {
		code := pkerrors.CodeSnapshotRead
		if errors.Is(err, storage.ErrObjectNotFound) {
			code = pkerrors.CodeSnapshotNotFound
		}
		return nil, pkerrors.NewStorageError(code,
			fmt.Sprintf("failed to fetch routing map for %s", container), err)
	}
	ranges, err := ParseRangesJSON(data)
	if err != nil {
		return nil, err
	}
	return New(ranges, opts...)
}

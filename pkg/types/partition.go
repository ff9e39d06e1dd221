// Package types provides the plain records the partition-key codec consumes
// and produces: partition key definitions and ordered ranges.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PartitionKind is the partitioning scheme declared by a container.
type PartitionKind string

const (
	// KindHash hashes the whole partition-key tuple into one value.
	KindHash PartitionKind = "Hash"

	// KindMultiHash hashes each component independently and concatenates
	// the results, which allows prefix (partial key) queries.
	KindMultiHash PartitionKind = "MultiHash"

	// KindRange keeps the sortable binary encoding of the tuple unhashed.
	KindRange PartitionKind = "Range"
)

// PartitionKeyVersion selects the hash generation for Hash and MultiHash.
type PartitionKeyVersion int

const (
	// VersionUnset means the definition did not declare a version.
	VersionUnset PartitionKeyVersion = 0

	// VersionV1 uses the 32-bit hash with truncated components.
	VersionV1 PartitionKeyVersion = 1

	// VersionV2 uses the 128-bit hash over untruncated components.
	VersionV2 PartitionKeyVersion = 2
)

// PartitionKeyDefinition describes how a container partitions its documents.
// Only the kind, version and number of paths are used by the codec.
type PartitionKeyDefinition struct {
	// Paths are the JSON paths of the partition key components, e.g. "/tenantId"
	Paths []string `json:"paths" yaml:"paths"`

	// Kind is the partitioning scheme
	Kind PartitionKind `json:"kind" yaml:"kind"`

	// Version is the hash generation; zero means the default for Kind
	Version PartitionKeyVersion `json:"version,omitempty" yaml:"version,omitempty"`
}

// EffectiveVersion returns the declared version, or the default for the
// kind when none was declared. MultiHash only exists as V2.
func (d PartitionKeyDefinition) EffectiveVersion() PartitionKeyVersion {
	if d.Version != VersionUnset {
		return d.Version
	}
	if d.Kind == KindMultiHash {
		return VersionV2
	}
	return VersionV1
}

// PathCount returns the number of declared partition key paths.
func (d PartitionKeyDefinition) PathCount() int {
	return len(d.Paths)
}

// ParsePartitionKind parses a kind name case-insensitively.
func ParsePartitionKind(s string) (PartitionKind, error) {
	switch strings.ToLower(s) {
	case "hash":
		return KindHash, nil
	case "multihash":
		return KindMultiHash, nil
	case "range":
		return KindRange, nil
	default:
		return "", fmt.Errorf("unknown partition kind %q", s)
	}
}

// UnmarshalJSON accepts the kind in any letter case.
func (k *PartitionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParsePartitionKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// UnmarshalYAML accepts the kind in any letter case.
func (k *PartitionKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	kind, err := ParsePartitionKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

package routingmap

import (
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

// rangesField is the envelope field used by partition key range feeds.
const rangesField = "PartitionKeyRanges"

// ParseRangesJSON reads partition key ranges from either a bare JSON array or
// a {"PartitionKeyRanges": [...]} envelope.
func ParseRangesJSON(data []byte) ([]PartitionKeyRange, error) {
	value, vtype, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, malformed("routing ranges are not valid JSON", err)
	}
	if vtype == jsonparser.Object {
		value, vtype, _, err = jsonparser.Get(value, rangesField)
		if err != nil {
			return nil, malformed(fmt.Sprintf("missing %s field", rangesField), err)
		}
	}
	if vtype != jsonparser.Array {
		return nil, malformed(fmt.Sprintf("routing ranges must be an array, got %s", vtype), nil)
	}

	var ranges []PartitionKeyRange
	var firstErr error
	_, err = jsonparser.ArrayEach(value, func(item []byte, dataType jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		if err == nil && dataType != jsonparser.Object {
			err = fmt.Errorf("range entry is a %s", dataType)
		}
		if err != nil {
			firstErr = malformed(fmt.Sprintf("invalid range entry %d", len(ranges)), err)
			return
		}
		r, err := parseRange(item)
		if err != nil {
			firstErr = err
			return
		}
		ranges = append(ranges, r)
	})
	if err != nil {
		return nil, malformed("invalid routing ranges array", err)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return ranges, nil
}

func parseRange(item []byte) (PartitionKeyRange, error) {
	var r PartitionKeyRange
	var err error
	if r.ID, err = jsonparser.GetString(item, "id"); err != nil {
		return r, malformed("range entry without id", err)
	}
	if r.MinInclusive, err = jsonparser.GetString(item, "minInclusive"); err != nil {
		return r, malformed(fmt.Sprintf("range %s without minInclusive", r.ID), err)
	}
	if r.MaxExclusive, err = jsonparser.GetString(item, "maxExclusive"); err != nil {
		return r, malformed(fmt.Sprintf("range %s without maxExclusive", r.ID), err)
	}
	// Effective keys order as lowercase hex.
	r.MinInclusive = strings.ToLower(r.MinInclusive)
	r.MaxExclusive = strings.ToLower(r.MaxExclusive)

	parents, vtype, _, err := jsonparser.Get(item, "parents")
	switch {
	case err == jsonparser.KeyPathNotFoundError, err == nil && vtype == jsonparser.Null:
		return r, nil
	case err == nil && vtype != jsonparser.Array:
		err = fmt.Errorf("parents is a %s", vtype)
		fallthrough
	case err != nil:
		return r, malformed(fmt.Sprintf("range %s has invalid parents", r.ID), err)
	}
	var parentErr error
	_, err = jsonparser.ArrayEach(parents, func(p []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.String {
			parentErr = fmt.Errorf("parent id is a %s", dataType)
			return
		}
		s, err := jsonparser.ParseString(p)
		if err != nil {
			parentErr = err
			return
		}
		r.Parents = append(r.Parents, s)
	})
	if err == nil {
		err = parentErr
	}
	if err != nil {
		return r, malformed(fmt.Sprintf("range %s has invalid parents", r.ID), err)
	}
	return r, nil
}

func malformed(message string, cause error) error {
	return pkerrors.NewCorruption(pkerrors.CodeMalformedJSON, message, cause)
}

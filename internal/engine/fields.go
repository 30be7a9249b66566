package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/appcore/internal/ir"
)

// fields flattens a mixed fields list into one array. Static entries are
// copied; dynamic entries are invoked in order and may yield one field, a
// list of fields, or nothing.
func (inv *invocation) fields(ctx context.Context, fs ir.Fields, z ir.Z, bundle *ir.Bundle) ([]ir.Field, error) {
	out := make([]ir.Field, 0, len(fs))
	for i, src := range fs {
		if src.Static != nil {
			out = append(out, *src.Static)
			continue
		}

		v, err := Invoke(ctx, src.Dynamic, z, bundle).Await(ctx)
		if err != nil {
			return nil, err
		}
		got, err := decodeFields(v)
		if err != nil {
			return nil, fmt.Errorf("fields entry %d of %s: %w", i, inv.method, err)
		}
		out = append(out, got...)
	}
	return out, nil
}

func decodeFields(v any) ([]ir.Field, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case ir.Field:
		return []ir.Field{v}, nil
	case []ir.Field:
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("result is not JSON serializable: %w", err)
	}
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		return nil, nil
	case len(data) > 0 && data[0] == '[':
		var fs []ir.Field
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("result is not a list of fields: %w", err)
		}
		return fs, nil
	case len(data) > 0 && data[0] == '{':
		var f ir.Field
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("result is not a field: %w", err)
		}
		return []ir.Field{f}, nil
	default:
		return nil, fmt.Errorf("expected a field or a list of fields, got %T", v)
	}
}

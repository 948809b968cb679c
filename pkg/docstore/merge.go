package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeJSON deep-merges incoming into existing. Nested objects are merged key
// by key; any other value in incoming replaces the existing one.
func MergeJSON(existing, incoming json.RawMessage) (json.RawMessage, error) {
	if len(existing) == 0 {
		return incoming, nil
	}
	base, err := decodeObject(existing)
	if err != nil {
		return nil, fmt.Errorf("decode existing document: %w", err)
	}
	patch, err := decodeObject(incoming)
	if err != nil {
		return nil, fmt.Errorf("decode incoming document: %w", err)
	}
	merged, err := json.Marshal(mergeMaps(base, patch))
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeMaps(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcChild, srcIsMap := value.(map[string]any)
		dstChild, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = mergeMaps(dstChild, srcChild)
			continue
		}
		dst[key] = value
	}
	return dst
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

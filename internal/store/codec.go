package store

import (
	"encoding/json"
	"fmt"
)

// Encode converts a JSON-tagged record into Fields.
func Encode(record any) (Fields, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return f, nil
}

// Decode fills a JSON-tagged record from Fields.
func Decode(f Fields, record any) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(raw, record); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

func marshalFields(f Fields) ([]byte, error) {
	if f == nil {
		f = Fields{}
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return raw, nil
}

func unmarshalFields(raw []byte) (Fields, error) {
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

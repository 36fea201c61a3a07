package cache

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Codec maps a record type onto CSV columns.
type Codec[T any] interface {
	Header() []string
	Encode(rec T) []string
	Decode(fields []string) (T, error)
}

// JSONCodec stores each record as a single JSON column. It suits record types that have no natural tabular shape.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Header() []string { return []string{"record"} }

func (JSONCodec[T]) Encode(rec T) []string {
	data, err := json.Marshal(rec)
	if err != nil {
		// Encode has no error return; an unmarshalable record is stored as JSON null and fails Decode.
		return []string{"null"}
	}
	return []string{string(data)}
}

func (JSONCodec[T]) Decode(fields []string) (T, error) {
	var rec T
	if len(fields) != 1 {
		return rec, fmt.Errorf("%w: expected 1 column, got %d", ErrSchemaMismatch, len(fields))
	}
	if fields[0] == "null" {
		return rec, fmt.Errorf("%w: null record", ErrCorruptRecord)
	}
	if err := json.Unmarshal([]byte(fields[0]), &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return rec, nil
}

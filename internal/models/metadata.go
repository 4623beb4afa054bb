// ABOUTME: Metadata is the open, schema-checked key-value type carried by chunks and vector items
// ABOUTME: Allows a small closed set of value types while permitting backend-specific extra keys
package models

import "fmt"

// Well-known metadata keys written by the ingestion pipeline.
const (
	MetaName            = "name"
	MetaSource          = "source"
	MetaHash            = "hash"
	MetaFileID          = "file_id"
	MetaStartIndex      = "start_index"
	MetaEmbeddingConfig = "embedding_config"
	MetaCreatedBy       = "created_by"
)

// Metadata holds provenance and audit fields for a chunk or vector item.
// Keys are free-form strings; values are restricted to the scalar types
// every backend can store natively.
type Metadata map[string]interface{}

// Validate checks that every value is a string, bool, int, int64 or float64.
// Backends marshal metadata to JSON, so richer types (time.Time, nested maps)
// must be stringified by the caller first.
func (m Metadata) Validate() error {
	for key, value := range m {
		switch value.(type) {
		case string, bool, int, int64, float64, nil:
		default:
			return fmt.Errorf("metadata key %q has unsupported type %T", key, value)
		}
	}
	return nil
}

// GetString returns the value for key if it is a string, else "".
func (m Metadata) GetString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy so callers can stamp extra fields without
// mutating the chunk they came from.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with all entries of other applied on top.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NodeData stores a node's config blob as raw JSON, mapped to a jsonb column.
// It round-trips untouched between the frontend and the database; only the
// node factory interprets it.
type NodeData []byte

// Scan implements sql.Scanner interface
func (n *NodeData) Scan(value interface{}) error {
	if value == nil {
		*n = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*n = v
		return nil
	case string:
		*n = []byte(v)
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into NodeData", value)
	}
}

// Value implements driver.Valuer interface
func (n NodeData) Value() (driver.Value, error) {
	if n == nil {
		return nil, nil
	}
	return []byte(n), nil
}

// MarshalJSON implements json.Marshaler - returns raw JSON
func (n NodeData) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return n, nil
}

// UnmarshalJSON implements json.Unmarshaler - stores raw JSON
func (n *NodeData) UnmarshalJSON(data []byte) error {
	if data == nil {
		*n = nil
		return nil
	}
	*n = data
	return nil
}

// AsMap decodes the blob into the generic shape the node factory consumes.
func (n NodeData) AsMap() (map[string]any, error) {
	if len(n) == 0 {
		return map[string]any{}, nil
	}
	var config map[string]any
	if err := json.Unmarshal(n, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node config: %w", err)
	}
	return config, nil
}

// FromMap encodes a generic config into a NodeData blob.
func FromMap(config map[string]any) (NodeData, error) {
	if config == nil {
		return nil, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node config: %w", err)
	}
	return NodeData(data), nil
}

package models

// Codec converts a session mapping to and from the blob stored in the data column.
type Codec interface {
	// Name identifies the codec in configuration ("json", "msgpack").
	Name() string
	// Marshal serializes the mapping.
	Marshal(data map[string]any) ([]byte, error)
	// Unmarshal decodes a blob. An empty blob yields an empty mapping.
	Unmarshal(blob []byte) (map[string]any, error)
}

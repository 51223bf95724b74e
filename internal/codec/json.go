package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSON stores the mapping as a JSON object. Every number decodes as
// json.Number, so integers keep their precision across a round trip.
type JSON struct{}

func (JSON) Name() string {
	return NameJSON
}

func (JSON) Marshal(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(data)
}

func (JSON) Unmarshal(blob []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return map[string]any{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(blob))
	decoder.UseNumber()

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, corrupt(NameJSON, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, corrupt(NameJSON, errors.New("trailing data after object"))
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

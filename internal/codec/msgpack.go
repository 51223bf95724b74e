package codec

import (
	"bytes"
	"encoding/base64"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack stores the mapping as base64-encoded MessagePack so it fits text columns.
// Integers decode as int64 (uint64 above math.MaxInt64) and floats as float64.
type Msgpack struct{}

func (Msgpack) Name() string {
	return NameMsgpack
}

func (Msgpack) Marshal(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	var buf bytes.Buffer
	encoder := msgpack.NewEncoder(&buf)
	encoder.SetSortMapKeys(true)
	if err := encoder.Encode(data); err != nil {
		return nil, err
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}

func (Msgpack) Unmarshal(blob []byte) (map[string]any, error) {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 {
		return map[string]any{}, nil
	}

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(blob)))
	n, err := base64.StdEncoding.Decode(raw, blob)
	if err != nil {
		return nil, corrupt(NameMsgpack, err)
	}

	decoder := msgpack.NewDecoder(bytes.NewReader(raw[:n]))
	decoder.UseLooseInterfaceDecoding(true)

	var data map[string]any
	if err := decoder.Decode(&data); err != nil {
		return nil, corrupt(NameMsgpack, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	for key, value := range data {
		data[key] = canonicalNumbers(value)
	}
	return data, nil
}

// canonicalNumbers folds the unsigned integers produced by compact encoding
// back into int64.
func canonicalNumbers(value any) any {
	switch v := value.(type) {
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = canonicalNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = canonicalNumbers(item)
		}
		return v
	default:
		return value
	}
}

package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"

	"parkspot-backend/internal/domain"
)

// encodeValue writes a condition operand as JSON, keeping numbers exact.
func encodeValue(v domain.Value) ([]byte, error) {
	return json.Marshal(jsonValue(v))
}

func jsonValue(v domain.Value) any {
	switch v.Kind() {
	case domain.KindNumber:
		n, _ := v.AsNumber()
		return json.Number(n.String())
	case domain.KindObject:
		out := make(map[string]any)
		for k, child := range v.Fields() {
			out[k] = jsonValue(child)
		}
		return out
	default:
		return v.Any()
	}
}

func decodeValue(raw []byte) (domain.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return domain.Value{}, fmt.Errorf("failed to decode condition value: %w", err)
	}
	return domain.ValueFromAny(decoded)
}

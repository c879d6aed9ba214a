package execctx

import "encoding/json"

// decodeJSON/encodeJSON back the typed EvaluatePin/SetPinValue helpers.
// JSON, not a binary codec, because pin values must remain introspectable
// by the trace/log pipeline without knowing each node kind's Go type.
func decodeJSON[T any](raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func encodeJSON[T any](v T) ([]byte, error) {
	return json.Marshal(v)
}

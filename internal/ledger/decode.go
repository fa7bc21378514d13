package ledger

import (
	"encoding/json"
	"fmt"
)

// Decode adapts a typed apply function into a replay Handler.
func Decode[T any](fn func(tx *Tx, in T) error) Handler {
	return func(tx *Tx, raw json.RawMessage) error {
		var in T
		if err := json.Unmarshal(raw, &in); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return fn(tx, in)
	}
}

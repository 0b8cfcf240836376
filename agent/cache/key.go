package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

var keyEncMode cbor.EncMode

func init() {
	var err error
	keyEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

// Key derives the content address of (op, params).
//
// params go through JSON first so structs, maps and numbers of different Go
// types collapse to one generic shape; deterministic CBOR then sorts map keys.
func Key(op string, params any) (string, error) {
	op = strings.TrimSpace(op)
	if op == "" {
		return "", fmt.Errorf("cache key: operation name is empty")
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("cache key: marshal params: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("cache key: normalize params: %w", err)
	}

	canonical, err := keyEncMode.Marshal([]any{op, generic})
	if err != nil {
		return "", fmt.Errorf("cache key: encode params: %w", err)
	}
	sum := blake3.Sum256(canonical)
	return op + ":" + hex.EncodeToString(sum[:]), nil
}

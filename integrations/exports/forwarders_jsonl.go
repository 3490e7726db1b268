package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"sweeper/storage/index"
)

// ForwardersJSONL builds a JSON Lines export of indexed clones and returns
// the serialised payload alongside a checksum.
func ForwardersJSONL(records []index.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, rec := range records {
		payload := map[string]interface{}{
			"factory":     rec.Factory.Hex(),
			"address":     rec.Address.Hex(),
			"destination": rec.Destination.Hex(),
			"salt":        rec.Salt,
			"indexed_at":  rec.IndexedAt.UTC().Format(time.RFC3339),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

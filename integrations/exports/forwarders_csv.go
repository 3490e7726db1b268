package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"time"

	"sweeper/storage/index"
)

// ForwardersCSV builds a CSV export of indexed clones and returns the
// serialised data alongside a SHA-256 checksum of the payload.
func ForwardersCSV(records []index.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"factory", "address", "destination", "salt", "indexed_at"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, rec := range records {
		row := []string{
			rec.Factory.Hex(),
			rec.Address.Hex(),
			rec.Destination.Hex(),
			rec.Salt,
			rec.IndexedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

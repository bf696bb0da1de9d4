package loader

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("sorlineage-workbook-fingerprint!")

// Fingerprint returns a 64-bit content hash of a workbook. Two workbooks
// with the same tables, sheets and rows in the same order have the same
// fingerprint.
func Fingerprint(wb *Workbook) (uint64, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create hash: %w", err)
	}

	writeInt(h, len(wb.Catalog))
	for _, rec := range wb.Catalog {
		writeString(h, rec.TableName)
		writeInt(h, len(rec.InputColumns))
		for _, c := range rec.InputColumns {
			writeString(h, c)
		}
	}

	writeInt(h, len(wb.Sheets))
	for _, s := range wb.Sheets {
		writeString(h, s)
	}

	writeInt(h, len(wb.Records))
	for _, r := range wb.Records {
		writeString(h, r.Sheet)
		writeString(h, r.OutputColumn)
		writeString(h, r.RecordID)
		writeString(h, r.InputRefs)
		writeString(h, r.Rule)
		writeString(h, r.Example)
	}
	return h.Sum64(), nil
}

// FormatFingerprint renders a fingerprint as fixed-width hex.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Length prefixes keep ("ab","c") and ("a","bc") apart.
func writeString(h hash.Hash64, s string) {
	writeInt(h, len(s))
	_, _ = h.Write([]byte(s))
}

func writeInt(h hash.Hash64, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, _ = h.Write(buf[:])
}

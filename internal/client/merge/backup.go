package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/peng0105/password-xl/internal/client/models"
)

// BackupExplain is written into every backup file for whoever opens it by hand.
const BackupExplain = "password-xl backup file. Entries and labels are encrypted with the main password in use when the backup was made. Restore it from the client."

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// NewBackup wraps a snapshot for export.
func NewBackup(store models.StoreData, now time.Time) models.BackupFile {
	return models.BackupFile{
		Explain:    BackupExplain,
		StoreData:  store,
		BackupTime: now.UnixMilli(),
	}
}

// WriteBackup writes b as JSON, zstd-compressed when compress is set.
func WriteBackup(w io.Writer, b models.BackupFile, compress bool) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// ReadBackup reads a backup written by WriteBackup; compression is detected
// from the content.
func ReadBackup(r io.Reader) (models.BackupFile, error) {
	var b models.BackupFile

	data, err := io.ReadAll(r)
	if err != nil {
		return b, fmt.Errorf("read backup: %w", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return b, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()

		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return b, fmt.Errorf("decompress backup: %w", err)
		}
	}

	if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("decode backup: %w", err)
	}
	if b.StoreData.PasswordData == "" && b.StoreData.LabelData == "" {
		return b, fmt.Errorf("decode backup: no vault data")
	}
	return b, nil
}

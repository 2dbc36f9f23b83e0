// Package document reads and writes the whole training document as a JSON
// backup file.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/claude/replift/internal/models"
)

// ErrInvalidDocument is returned for input that is not a training document.
var ErrInvalidDocument = errors.New("invalid document")

// maxDocumentSize bounds what Decode reads.
const maxDocumentSize = 32 << 20

// Decode reads a backup. The input must be a JSON object carrying programs
// or sessions (under either their current or legacy key). The result is
// normalized.
func Decode(r io.Reader) (*models.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidDocument, maxDocumentSize)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !present(probe, "programs", "programmes") && !present(probe, "sessions", "seances") {
		return nil, fmt.Errorf("%w: neither programs nor sessions", ErrInvalidDocument)
	}

	doc := models.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Normalize()
	return doc, nil
}

func present(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return true
		}
	}
	return false
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *models.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}

// BackupFilename names an export taken at now.
func BackupFilename(now time.Time) string {
	return "replift_backup_" + now.Format(time.DateOnly) + ".json"
}

// Package attach stores receipt files on disk, grouped per transaction.
// Metadata lives in SQLite; this package only handles the bytes.
package attach

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tesoreria/internal/core"
)

const (
	// MaxTransactionSize caps invoice uploads on transactions.
	MaxTransactionSize = 10 << 20
	// MaxPaymentSize caps receipt uploads on payments.
	MaxPaymentSize = 5 << 20
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Store writes attachment blobs under root/<transactionID>/<fileID><ext>.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Save sniffs the content type, enforces the size cap and writes the blob.
// It returns the generated file ID, the relative storage path and the
// detected content type.
func (s *Store) Save(transactionID string, r io.Reader, maxSize int64) (id, path, contentType string, err error) {
	// One extra byte so an oversized upload is detectable.
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", "", "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", "", "", &core.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d MB limit", maxSize>>20),
		}
	}
	if len(data) == 0 {
		return "", "", "", &core.ValidationError{Field: "file", Message: "file is empty"}
	}

	contentType = http.DetectContentType(data)
	// DetectContentType may append charset parameters.
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", "", &core.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported file type %s, only JPEG, PNG and PDF are accepted", contentType),
		}
	}

	id = uuid.NewString()
	rel := filepath.Join(transactionID, id+ext)
	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", "", "", fmt.Errorf("create transaction dir: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", "", "", fmt.Errorf("write attachment: %w", err)
	}
	return id, rel, contentType, nil
}

// Open returns the blob for a stored path.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, core.ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.root, clean))
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// Delete removes a stored blob. Missing files are not an error: metadata is
// the source of truth and blob cleanup is best effort.
func (s *Store) Delete(path string) error {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, clean))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// DeleteAll removes every blob stored for a transaction.
func (s *Store) DeleteAll(transactionID string) error {
	if transactionID == "" || strings.ContainsAny(transactionID, `/\`) {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(s.root, transactionID)); err != nil {
		return fmt.Errorf("delete transaction attachments: %w", err)
	}
	return nil
}

package attach

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tesoreria/internal/core"
)

// Minimal valid PNG header, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

var pdfBytes = []byte("%PDF-1.4\n%test document\n")

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newTestStore(t)

	id, path, contentType, err := s.Save("tx-1", bytes.NewReader(pngBytes), MaxPaymentSize)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("contentType = %s, want image/png", contentType)
	}
	if id == "" {
		t.Error("empty file id")
	}
	if !strings.HasPrefix(path, filepath.Join("tx-1")+string(filepath.Separator)) {
		t.Errorf("path %q not under transaction dir", path)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("path %q missing extension", path)
	}

	f, err := s.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Error("stored bytes differ from upload")
	}
}

func TestSaveDetectsPDF(t *testing.T) {
	s := newTestStore(t)
	_, path, contentType, err := s.Save("tx-1", bytes.NewReader(pdfBytes), MaxTransactionSize)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if contentType != "application/pdf" {
		t.Errorf("contentType = %s, want application/pdf", contentType)
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Errorf("path = %q, want .pdf suffix", path)
	}
}

func TestSaveRejections(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		data []byte
		max  int64
	}{
		{"empty file", nil, MaxPaymentSize},
		{"unsupported type", []byte("GIF89a......."), MaxPaymentSize},
		{"oversized", append(append([]byte{}, pngBytes...), make([]byte, 64)...), int64(len(pngBytes))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := s.Save("tx-1", bytes.NewReader(tt.data), tt.max)
			if !core.IsValidation(err) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestOpenRefusesTraversal(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Open("../outside"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	_, path, _, err := s.Save("tx-1", bytes.NewReader(pngBytes), MaxPaymentSize)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(path); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Open(path); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted blob still opens: %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, _, _, err := s.Save("tx-1", bytes.NewReader(pngBytes), MaxPaymentSize); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, _, err := s.Save("tx-1", bytes.NewReader(pdfBytes), MaxPaymentSize); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.DeleteAll("tx-1"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tx-1")); !os.IsNotExist(err) {
		t.Errorf("transaction dir survived DeleteAll: %v", err)
	}
}

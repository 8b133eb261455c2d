package http

import (
	"io"
	"net/http"

	"tesoreria/internal/attach"
	"tesoreria/internal/core"
)

// uploadAttachment reads the multipart "file" field and stores the blob,
// returning metadata ready for the repository.
func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request, transactionID string, maxSize int64) (core.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+(1<<20))
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return core.Attachment{}, &core.ValidationError{Field: "file", Message: "invalid multipart form"}
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return core.Attachment{}, &core.ValidationError{Field: "file", Message: "missing file field"}
	}
	defer f.Close()

	_, path, contentType, err := s.blobs.Save(transactionID, f, maxSize)
	if err != nil {
		return core.Attachment{}, err
	}

	return core.Attachment{
		FileName: header.Filename,
		FileURL:  path,
		FileType: contentType,
		FileSize: header.Size,
	}, nil
}

func (s *Server) handleUploadTransactionAttachment(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")

	// Verify the transaction before writing the blob.
	if _, err := s.transactions.Get(r.Context(), transactionID); err != nil {
		respondError(w, r, err)
		return
	}

	a, err := s.uploadAttachment(w, r, transactionID, attach.MaxTransactionSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	stored, err := s.storage.AddTransactionAttachment(r.Context(), transactionID, a)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAttachmentDTO(stored))
}

func (s *Server) handleListTransactionAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := s.storage.ListTransactionAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]attachmentDTO, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, toAttachmentDTO(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"attachments": out})
}

func (s *Server) handleUploadPaymentAttachment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")

	payment, err := s.storage.GetPayment(r.Context(), paymentID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	a, err := s.uploadAttachment(w, r, payment.TransactionID, attach.MaxPaymentSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	stored, err := s.storage.AddPaymentAttachment(r.Context(), paymentID, a)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAttachmentDTO(stored))
}

func (s *Server) handleListPaymentAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := s.storage.ListPaymentAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]attachmentDTO, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, toAttachmentDTO(a))
	}
	respondJSON(w, http.StatusOK, map[string]any{"attachments": out})
}

// handleDownloadAttachment streams a stored blob back to the client.
func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	f, err := s.blobs.Open(r.PathValue("path"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment")
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; nothing useful left to send.
		return
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/views"
)

// maxUploadSize caps multipart bodies; phone photos can be large
const maxUploadSize = int64(20 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeHTML sends a rendered page with the given status
func writeHTML(w http.ResponseWriter, code int, page *bytes.Buffer) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(page.Bytes())
}

// navigation records where a component asked to go
type navigation struct {
	route views.Route
}

func (n *navigation) navigate(route views.Route) {
	n.route = route
}

// redirect follows the recorded route, if any
func (n *navigation) redirect(w http.ResponseWriter, r *http.Request) bool {
	if n.route == "" {
		return false
	}
	http.Redirect(w, r, n.route.Path(), http.StatusSeeOther)
	return true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, views.RouteBills.Path(), http.StatusSeeOther)
}

// handleBills renders the employee's bill list
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.store.List(r.Context())
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	if err := views.NewBillList(nil, nil).Render(&page, bills); err != nil {
		slog.Error("Error rendering bills", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &page)
}

// handleNewBillIntent is the target of the list's "new bill" button
func (s *Server) handleNewBillIntent(w http.ResponseWriter, r *http.Request) {
	nav := &navigation{}
	list := views.NewBillList(nav.navigate, nil)
	if err := list.Dispatch(views.CreateNewBill{}); err != nil {
		slog.Error("Error dispatching new bill intent", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !nav.redirect(w, r) {
		corsError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleViewReceipt is the target of a row's eye icon
func (s *Server) handleViewReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, bill.ErrNotFound) {
			slog.Error("Error getting bill", "id", id, "error", err)
		}
		corsError(w, "Bill not found", http.StatusNotFound)
		return
	}

	var (
		data        []byte
		contentType string
		fileErr     error
	)
	list := views.NewBillList(nil, func(b *bill.Bill) {
		data, contentType, fileErr = s.store.ReceiptFile(r.Context(), b.ID)
	})
	if err := list.Dispatch(views.ViewReceipt{Bill: b}); err != nil {
		slog.Error("Error dispatching view receipt intent", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if fileErr != nil {
		slog.Error("Error reading receipt", "id", id, "error", fileErr)
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleNewBillForm renders an empty form
func (s *Server) handleNewBillForm(w http.ResponseWriter, r *http.Request) {
	var page bytes.Buffer
	form := views.NewNewBillForm(s.store, s.session(r), nil)
	if err := form.Render(&page); err != nil {
		slog.Error("Error rendering new bill form", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &page)
}

// formValues reads the new-bill fields from a parsed form
func formValues(r *http.Request) views.FormValues {
	return views.FormValues{
		Type:       r.FormValue(string(views.FieldType)),
		Name:       r.FormValue(string(views.FieldName)),
		Date:       r.FormValue(string(views.FieldDate)),
		Amount:     r.FormValue(string(views.FieldAmount)),
		VAT:        r.FormValue(string(views.FieldVAT)),
		Pct:        r.FormValue(string(views.FieldPct)),
		Commentary: r.FormValue(string(views.FieldCommentary)),
	}
}

// readUpload returns the named file part, or nil when none was sent
func readUpload(r *http.Request, field string) (*views.File, *multipart.FileHeader, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return &views.File{Name: header.Filename, Data: data}, header, nil
}

// handleSubmitNewBill runs one form lifecycle: file change, then submit
func (s *Server) handleSubmitNewBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		corsError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, _, err := readUpload(r, string(views.FieldFile))
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		corsError(w, "Error reading file", http.StatusBadRequest)
		return
	}

	nav := &navigation{}
	form := views.NewNewBillForm(s.store, s.session(r), nav.navigate)

	input := &views.FileInput{}
	if file != nil {
		input.Files = []views.File{*file}
	}
	ctx := r.Context()
	if err := form.Dispatch(ctx, views.FileSelected{Input: input}); err != nil {
		slog.Error("Error dispatching file change", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	submitErr := form.Dispatch(ctx, views.Submit{Values: formValues(r)})
	if submitErr == nil && nav.redirect(w, r) {
		return
	}

	code := http.StatusInternalServerError
	switch {
	case submitErr == nil:
		// saved but nothing to navigate to; show the list anyway
		http.Redirect(w, r, views.RouteBills.Path(), http.StatusSeeOther)
		return
	case errors.Is(submitErr, views.ErrFormFieldInvalid), errors.Is(submitErr, views.ErrNoReceipt):
		code = http.StatusBadRequest
	case errors.Is(submitErr, views.ErrStoreCreateFailed):
		code = http.StatusBadGateway
	}
	slog.Info("New bill not saved", "status", code, "error", submitErr)

	var page bytes.Buffer
	if err := form.Render(&page); err != nil {
		slog.Error("Error rendering new bill form", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, code, &page)
}

// handleListBills returns all bills as JSON
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.store.List(r.Context())
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if bills == nil {
		bills = []*bill.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleGetBill returns a single bill
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := s.store.Get(r.Context(), id)
	if err != nil {
		corsError(w, "Bill not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleCreateBill creates a bill from a JSON payload with a base64 file
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var p bill.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&p); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.Email = s.session(r).CurrentUser().Email

	b, err := s.store.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, bill.ErrInvalidPayload) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error creating bill", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleScanReceipt returns field suggestions read from an uploaded receipt
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		jsonError(w, "Receipt scanning is not enabled", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := readUpload(r, string(views.FieldFile))
	if err != nil || file == nil {
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = bill.ContentTypeFor(file.Name)
	}

	suggestion, err := s.scanner.ScanReceipt(r.Context(), file.Data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", file.Name, "error", err)
		jsonError(w, "Le justificatif n'a pas pu être lu.", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

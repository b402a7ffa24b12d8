package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zombor/billed/internal/bill"
)

var (
	// ErrFormFieldInvalid matches submissions blocked by field validation
	ErrFormFieldInvalid = errors.New("form field invalid")
	// ErrStoreCreateFailed matches submissions the store did not persist
	ErrStoreCreateFailed = errors.New("store create failed")
	// ErrNoReceipt is returned when a form is submitted without a valid receipt
	ErrNoReceipt = errors.New("no valid receipt selected")
)

// InvalidFormError carries the per-field result of a blocked submission
type InvalidFormError struct {
	Validity Validity
}

func (e *InvalidFormError) Error() string {
	parts := make([]string, 0, len(e.Validity))
	for _, f := range e.Validity.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Validity[f]))
	}
	return fmt.Sprintf("%s (%s)", ErrFormFieldInvalid, strings.Join(parts, ", "))
}

func (e *InvalidFormError) Is(target error) bool {
	return target == ErrFormFieldInvalid
}

// File is a selected file: its name and content
type File struct {
	Name string
	Data []byte
}

// FileInput is the receipt file control. It holds zero or one file.
type FileInput struct {
	Files []File
}

// Value is the input's displayed value, empty when nothing is selected
func (in *FileInput) Value() string {
	if in == nil || len(in.Files) == 0 {
		return ""
	}
	return in.Files[0].Name
}

// Clear deselects any file
func (in *FileInput) Clear() {
	if in != nil {
		in.Files = nil
	}
}

// NewBillForm collects, validates and submits one new bill.
// An instance lives for a single form lifecycle and is not safe for concurrent use.
type NewBillForm struct {
	store    Store
	session  Session
	navigate Navigate

	values    FormValues
	validity  Validity
	file      *File
	fileValid bool
	failure   string
}

// NewNewBillForm creates an empty form bound to its collaborators
func NewNewBillForm(store Store, session Session, navigate Navigate) *NewBillForm {
	return &NewBillForm{
		store:    store,
		session:  session,
		navigate: navigate,
		validity: Validity{},
	}
}

// HandleFileChange keeps an accepted receipt and clears the input otherwise.
// Rejection is silent.
func (f *NewBillForm) HandleFileChange(input *FileInput) {
	if input == nil || len(input.Files) == 0 {
		f.file = nil
		f.fileValid = false
		return
	}

	selected := input.Files[0]
	if !bill.AcceptedReceipt(selected.Name) {
		slog.Debug("Rejected receipt file", "filename", selected.Name)
		input.Clear()
		f.file = nil
		f.fileValid = false
		return
	}

	f.file = &File{Name: selected.Name, Data: selected.Data}
	f.fileValid = true
}

// HandleSubmit validates the form and asks the store to create the bill.
// Navigation back to the bill list happens only when the store succeeds.
func (f *NewBillForm) HandleSubmit(ctx context.Context, values FormValues) (*bill.Bill, error) {
	f.values = values
	f.failure = ""
	f.validity = Validate(values)
	if !f.validity.Valid() {
		return nil, &InvalidFormError{Validity: f.validity}
	}

	if !f.fileValid || f.file == nil {
		f.failure = "Veuillez joindre un justificatif au format jpg, jpeg ou png."
		return nil, fmt.Errorf("%w: %w", ErrStoreCreateFailed, ErrNoReceipt)
	}

	payload := values.payload()
	if f.session != nil {
		payload.Email = f.session.CurrentUser().Email
	}
	payload.FileName = f.file.Name
	payload.File = f.file.Data

	created, err := f.store.Create(ctx, payload)
	if err != nil {
		slog.Error("Failed to create bill", "name", payload.Name, "error", err)
		f.failure = "L'enregistrement de la note de frais a échoué. Veuillez réessayer."
		return nil, fmt.Errorf("%w: %w", ErrStoreCreateFailed, err)
	}

	if f.navigate != nil {
		f.navigate(RouteBills)
	}
	return created, nil
}

// Dispatch routes an intent to the matching handler
func (f *NewBillForm) Dispatch(ctx context.Context, intent Intent) error {
	switch i := intent.(type) {
	case FileSelected:
		f.HandleFileChange(i.Input)
		return nil
	case Submit:
		_, err := f.HandleSubmit(ctx, i.Values)
		return err
	default:
		return unknownIntent("new bill form", intent)
	}
}

// Values returns the last submitted values
func (f *NewBillForm) Values() FormValues {
	return f.values
}

// Validity returns the result of the last validation
func (f *NewBillForm) Validity() Validity {
	return f.validity
}

// FileName returns the name of the accepted receipt, or ""
func (f *NewBillForm) FileName() string {
	if !f.fileValid || f.file == nil {
		return ""
	}
	return f.file.Name
}

// Render writes the form, including messages from the last submission
func (f *NewBillForm) Render(w io.Writer) error {
	data := struct {
		Types    []string
		Values   FormValues
		Validity Validity
		FileName string
		Failure  string
		Action   string
	}{
		Types:    bill.ExpenseTypes,
		Values:   f.values,
		Validity: f.validity,
		FileName: f.FileName(),
		Failure:  f.failure,
		Action:   RouteNewBill.Path(),
	}
	if err := templates.ExecuteTemplate(w, "newbill.html", data); err != nil {
		return fmt.Errorf("rendering new bill form: %w", err)
	}
	return nil
}

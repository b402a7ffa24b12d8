package bill

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DateLayout is the calendar date format bills are stored and displayed in
const DateLayout = "2006-01-02"

// Status is the review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// ExpenseTypes are the expense categories an employee can pick from
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// IsExpenseType reports whether t is one of ExpenseTypes
func IsExpenseType(t string) bool {
	for _, et := range ExpenseTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Bill is a single expense record submitted by an employee
type Bill struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	Amount     float64   `json:"amount"`
	Date       string    `json:"date"` // YYYY-MM-DD
	VAT        *float64  `json:"vat,omitempty"`
	Pct        int       `json:"pct"` // reimbursement percentage
	Commentary string    `json:"commentary,omitempty"`
	FileName   string    `json:"fileName"`
	FileURL    string    `json:"fileUrl,omitempty"` // set once the receipt is stored
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ParsedDate returns the bill date as a time.Time
func (b *Bill) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, b.Date)
}

// ReceiptExtensions are the accepted receipt file suffixes, lowercase
var ReceiptExtensions = []string{"jpg", "jpeg", "png"}

// AcceptedReceipt reports whether name ends in one of ReceiptExtensions
func AcceptedReceipt(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, accepted := range ReceiptExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}

// Payload carries the data needed to create a bill, including the receipt blob.
// New bills are always pending. Email comes from the session, never from the client.
type Payload struct {
	Email      string   `json:"-"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Amount     float64  `json:"amount"`
	Date       string   `json:"date"`
	VAT        *float64 `json:"vat,omitempty"`
	Pct        int      `json:"pct"`
	Commentary string   `json:"commentary,omitempty"`
	FileName   string   `json:"fileName"`
	File       []byte   `json:"file"` // base64 in JSON
}

var (
	// ErrNotFound is returned when a bill does not exist
	ErrNotFound = errors.New("bill not found")
	// ErrInvalidPayload is returned when a payload breaks a bill invariant
	ErrInvalidPayload = errors.New("invalid bill payload")
)

// Validate checks the payload against the bill invariants
func (p Payload) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		problems = append(problems, fmt.Sprintf("date %q is not a valid date", p.Date))
	}
	if p.Amount < 0 {
		problems = append(problems, "amount must not be negative")
	}
	if p.VAT != nil && *p.VAT < 0 {
		problems = append(problems, "vat must not be negative")
	}
	if p.Pct < 0 || p.Pct > 100 {
		problems = append(problems, "pct must be between 0 and 100")
	}
	if p.FileName == "" || len(p.File) == 0 {
		problems = append(problems, "receipt file is required")
	} else if !AcceptedReceipt(p.FileName) {
		problems = append(problems, fmt.Sprintf("receipt %q must be a jpg, jpeg or png file", p.FileName))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(problems, ", "))
	}
	return nil
}

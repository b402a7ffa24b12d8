// Package scanning reads receipt images and suggests values for a new bill.
package scanning

import (
	"context"
	"fmt"
	"time"
)

// Suggestion holds the bill fields read off a receipt. Empty fields were not found.
type Suggestion struct {
	Name   string   `json:"name"`
	Date   string   `json:"date"` // YYYY-MM-DD
	Amount float64  `json:"amount"`
	VAT    *float64 `json:"vat,omitempty"`
	Type   string   `json:"type,omitempty"`
}

// Scanner extracts bill suggestions from a receipt
type Scanner interface {
	// ScanReceipt analyzes a receipt image or PDF
	ScanReceipt(ctx context.Context, data []byte, contentType string) (*Suggestion, error)
	// Close releases the scanner's resources
	Close() error
}

// askFunc sends one PNG plus scanPrompt to a model and returns the raw reply
type askFunc func(ctx context.Context, png []byte) (string, error)

// scan normalizes the receipt to PNG, asks the model within timeout and
// parses its reply. Every back-end goes through here.
func scan(ctx context.Context, timeout time.Duration, ask askFunc, data []byte, contentType string) (*Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pngData, err := toPNG(data, contentType)
	if err != nil {
		return nil, err
	}

	reply, err := ask(ctx, pngData)
	if err != nil {
		return nil, err
	}

	s, err := parseSuggestion(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return s, nil
}

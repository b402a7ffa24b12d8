package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// dateLayouts are the receipt date formats we try after ISO
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
}

// stripCodeFence removes a markdown code fence around a model reply
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseSuggestion decodes a model reply into a Suggestion
func parseSuggestion(text string) (*Suggestion, error) {
	text = stripCodeFence(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	s.Name = strings.TrimSpace(s.Name)
	s.Date = normalizeDate(s.Date)
	if s.Amount < 0 {
		s.Amount = 0
	}
	if s.VAT != nil && *s.VAT < 0 {
		s.VAT = nil
	}
	if !bill.IsExpenseType(s.Type) {
		s.Type = ""
	}

	return &s, nil
}

// normalizeDate returns raw as YYYY-MM-DD, or "" when it cannot be read.
// Day-first layouts win over month-first ones.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if d, err := time.Parse(bill.DateLayout, raw); err == nil {
		return d.Format(bill.DateLayout)
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d.Format(bill.DateLayout)
		}
	}
	return ""
}

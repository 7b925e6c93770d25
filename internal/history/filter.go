package history

import "strings"

// Filter selects history records. Zero fields match everything.
type Filter struct {
	// Text matches key name or holder name case-insensitively, or any
	// part of the barcode. It is matched as typed, spaces included.
	Text    string
	Holder  string
	Barcode string
	Action  Action
	// Limit caps the number of records yielded; 0 means no cap.
	Limit int
}

func (f Filter) Matches(r *Record) bool {
	if f.Holder != "" && r.UserName != f.Holder {
		return false
	}
	if f.Barcode != "" && r.KeyBarcode != f.Barcode {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	return f.matchesText(r)
}

func (f Filter) matchesText(r *Record) bool {
	if f.Text == "" {
		return true
	}
	needle := strings.ToLower(f.Text)
	return strings.Contains(strings.ToLower(r.KeyName), needle) ||
		strings.Contains(strings.ToLower(r.UserName), needle) ||
		strings.Contains(r.KeyBarcode, f.Text)
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPermDocument reports a PERM document without a usable calendar_days figure.
var ErrInvalidPermDocument = errors.New("invalid perm document")

// maxRecordNesting bounds how many record envelopes DecodePermDays unwraps.
const maxRecordNesting = 3

// DecodePermDays extracts the average PERM processing time, in calendar days, from a
// document of the form {"record":{"record":{"calendar_days":N}}}. Envelopes are optional.
func DecodePermDays(data []byte) (int, error) {
	payload := data
	for range maxRecordNesting + 1 {
		var doc struct {
			CalendarDays *int           `json:"calendar_days"`
			Record       json.RawMessage `json:"record"`
		}
		if err := json.Unmarshal(payload, &doc); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPermDocument, err)
		}
		if doc.CalendarDays != nil {
			if *doc.CalendarDays <= 0 {
				return 0, fmt.Errorf("%w: calendar_days must be > 0", ErrInvalidPermDocument)
			}
			return *doc.CalendarDays, nil
		}
		if len(doc.Record) == 0 {
			break
		}
		payload = doc.Record
	}
	return 0, fmt.Errorf("%w: calendar_days not found", ErrInvalidPermDocument)
}

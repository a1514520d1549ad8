package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFrequency = errors.New("unknown habit frequency (must be DAILY or WEEKLY)")
	ErrUnknownStatus    = errors.New("unknown entry status (must be COMPLETED, PARTIAL or MISSED)")
)

// Frequency is the cadence a habit is tracked at. The zero value is not a
// valid cadence.
type Frequency uint8

const (
	FrequencyDaily Frequency = iota + 1
	FrequencyWeekly
)

func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAILY":
		return FrequencyDaily, nil
	case "WEEKLY":
		return FrequencyWeekly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "DAILY"
	case FrequencyWeekly:
		return "WEEKLY"
	}
	return fmt.Sprintf("Frequency(%d)", uint8(f))
}

func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrequency, uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Frequency) Value() (driver.Value, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFrequency, uint8(f))
	}
	return f.String(), nil
}

func (f *Frequency) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return fmt.Errorf("scan frequency: %w", err)
	}
	return f.UnmarshalText([]byte(s))
}

// EntryStatus is the outcome recorded for a habit on one calendar day.
type EntryStatus uint8

const (
	StatusCompleted EntryStatus = iota + 1
	StatusPartial
	StatusMissed
)

func ParseEntryStatus(s string) (EntryStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPLETED":
		return StatusCompleted, nil
	case "PARTIAL":
		return StatusPartial, nil
	case "MISSED":
		return StatusMissed, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s EntryStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusMissed:
		return true
	}
	return false
}

func (s EntryStatus) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusPartial:
		return "PARTIAL"
	case StatusMissed:
		return "MISSED"
	}
	return fmt.Sprintf("EntryStatus(%d)", uint8(s))
}

func (s EntryStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *EntryStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseEntryStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s EntryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return s.String(), nil
}

func (s *EntryStatus) Scan(src any) error {
	text, err := scanText(src)
	if err != nil {
		return fmt.Errorf("scan entry status: %w", err)
	}
	return s.UnmarshalText([]byte(text))
}

// Classification is the dashboard tier derived from a completion rate.
type Classification string

const (
	ClassificationStrong Classification = "STRONG"
	ClassificationWeak   Classification = "WEAK"
	ClassificationBroken Classification = "BROKEN"
)

func scanText(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", errors.New("unexpected NULL")
	}
	return "", fmt.Errorf("unsupported type %T", src)
}

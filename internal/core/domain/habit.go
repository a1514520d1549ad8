package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 80 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 240 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color (must be primary, secondary, accent or muted)")
)

const (
	ColorPrimary   = "primary"
	ColorSecondary = "secondary"
	ColorAccent    = "accent"
	ColorMuted     = "muted"
	MaxTitleLen    = 80
	MaxDescLen     = 240
)

type Habit struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Color       string    `json:"color" db:"color"`
	Frequency   Frequency `json:"frequency" db:"frequency"`
	Version     int       `json:"version" db:"version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func validateAndNormalize(title, desc, color string, frequency Frequency) (string, string, string, error) {
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return "", "", "", ErrHabitTitleEmpty
	}
	if utf8.RuneCountInString(trimmedTitle) > MaxTitleLen {
		return "", "", "", ErrHabitTitleTooLong
	}

	trimmedDesc := strings.TrimSpace(desc)
	if utf8.RuneCountInString(trimmedDesc) > MaxDescLen {
		return "", "", "", ErrHabitDescTooLong
	}

	switch color {
	case "":
		color = ColorPrimary
	case ColorPrimary, ColorSecondary, ColorAccent, ColorMuted:
	default:
		return "", "", "", ErrInvalidColor
	}

	if !frequency.Valid() {
		return "", "", "", ErrUnknownFrequency
	}

	return trimmedTitle, trimmedDesc, color, nil
}

// NewHabit builds a validated habit. A zero frequency defaults to DAILY and
// an empty color to primary.
func NewHabit(userID, title, description, color string, frequency Frequency) (*Habit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrHabitInvalidUserID
	}

	if frequency == 0 {
		frequency = FrequencyDaily
	}

	cleanTitle, cleanDesc, cleanColor, err := validateAndNormalize(title, description, color, frequency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       cleanTitle,
		Description: cleanDesc,
		Color:       cleanColor,
		Frequency:   frequency,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update replaces the editable fields. It reports whether the cadence changed,
// since that invalidates the persisted streak.
func (h *Habit) Update(title, description, color string, frequency Frequency) (bool, error) {
	cleanTitle, cleanDesc, cleanColor, err := validateAndNormalize(title, description, color, frequency)
	if err != nil {
		return false, err
	}

	frequencyChanged := h.Frequency != frequency

	h.Title = cleanTitle
	h.Description = cleanDesc
	h.Color = cleanColor
	h.Frequency = frequency
	h.UpdatedAt = time.Now().UTC()

	return frequencyChanged, nil
}

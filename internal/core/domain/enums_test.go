package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
)

func TestParseFrequency(t *testing.T) {
	f, err := domain.ParseFrequency(" weekly ")
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, f)

	_, err = domain.ParseFrequency("MONTHLY")
	assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
}

func TestParseEntryStatus(t *testing.T) {
	for _, s := range []string{"COMPLETED", "PARTIAL", "MISSED"} {
		status, err := domain.ParseEntryStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, status.String())
	}

	_, err := domain.ParseEntryStatus("SKIPPED")
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
}

func TestEnums_JSON(t *testing.T) {
	t.Run("Unknown values refuse to serialize", func(t *testing.T) {
		_, err := json.Marshal(domain.Frequency(7))
		assert.Error(t, err)

		_, err = json.Marshal(domain.EntryStatus(0))
		assert.Error(t, err)
	})

	t.Run("Decoding rejects values outside the closed set", func(t *testing.T) {
		var payload struct {
			Frequency domain.Frequency `json:"frequency"`
		}
		err := json.Unmarshal([]byte(`{"frequency":"HOURLY"}`), &payload)
		assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
	})
}

func TestEnums_SQL(t *testing.T) {
	var f domain.Frequency
	require.NoError(t, f.Scan([]byte("WEEKLY")))
	assert.Equal(t, domain.FrequencyWeekly, f)

	var s domain.EntryStatus
	require.NoError(t, s.Scan("MISSED"))
	assert.Equal(t, domain.StatusMissed, s)
	assert.Error(t, s.Scan(nil))
	assert.Error(t, s.Scan(42))

	v, err := domain.StatusCompleted.Value()
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", v)
}

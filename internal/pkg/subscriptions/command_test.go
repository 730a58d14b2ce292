package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	simple := map[string]Command{
		`{"action":"cancel"}`:             Cancel{},
		`{"action":"cancel_immediately"}`: CancelImmediately{},
		`{"action":"pause"}`:              Pause{},
		`{"action":"resume"}`:             Resume{},
		`{"action":"reset_hours"}`:        ResetHours{},
	}
	for body, want := range simple {
		got, err := ParseCommand([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got)
	}

	cmd, err := ParseCommand([]byte(`{"action":"add_usage","description":" Update plugins ","hours":0.75}`))
	require.NoError(t, err)
	assert.Equal(t, AddUsage{Description: "Update plugins", Hours: 0.75}, cmd)

	cmd, err = ParseCommand([]byte(`{"action":"patch","plan_name":"Premium","monthly_price":19900,"status":"past_due"}`))
	require.NoError(t, err)
	p := cmd.(Patch)
	assert.Equal(t, "Premium", *p.PlanName)
	assert.Equal(t, 19900, *p.MonthlyPrice)
	assert.Equal(t, "past_due", *p.Status)
	assert.Nil(t, p.HoursIncluded)
}

func TestParseCommand_Invalid(t *testing.T) {
	bodies := []string{
		`not json`,
		`{"action":"delete_everything"}`,
		`{"action":"add_usage","hours":1}`,
		`{"action":"add_usage","description":"x","hours":0}`,
		`{"action":"add_usage","description":"x","hours":-2}`,
		`{"action":"patch"}`,
		`{"action":"patch","status":"frozen"}`,
		`{"action":"patch","monthly_price":-1}`,
	}
	for _, body := range bodies {
		_, err := ParseCommand([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidCommand, body)
	}
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	for _, cmd := range []Command{Cancel{}, CancelImmediately{}, Pause{}, Resume{}} {
		back, err := ParseCommand(EncodeCommand(cmd))
		require.NoError(t, err)
		assert.Equal(t, cmd, back)
	}
}

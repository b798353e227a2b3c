package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 5, 1, 9, 30, 0, 123, time.FixedZone("PDT", -7*3600)), ID: uuid.New()}
	token := EncodeCursor(want)
	require.NotContains(t, token, "=")

	got, err := ParseCursor(token)
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, got)

	enc := base64.RawURLEncoding.EncodeToString
	for _, raw := range []string{
		"%%%",
		enc([]byte("not json")),
		enc([]byte(`{"t":"yesterday","id":"x"}`)),
		enc([]byte(`{"id":"` + uuid.NewString() + `"}`)),
	} {
		_, err := ParseCursor(raw)
		require.ErrorIs(t, err, ErrInvalidCursor, raw)
	}
}

func TestLimitsAndTrim(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 11, LimitWithBuffer(10))

	rows, more := Trim([]int{1, 2, 3}, 2)
	require.Equal(t, []int{1, 2}, rows)
	require.True(t, more)

	rows, more = Trim([]int{1, 2}, 2)
	require.Len(t, rows, 2)
	require.False(t, more)
}

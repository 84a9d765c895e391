package pagination

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	encoded := CursorFor(now, "42")

	c, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.Equal(t, "42", c.ID)
	require.Equal(t, now.Format(time.RFC3339Nano), c.CreatedAt)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)
}

func TestTrim(t *testing.T) {
	data := []int{1, 2, 3, 4}
	out, page := Trim(data, 3, func(i int) string { return strconv.Itoa(i) })
	require.Equal(t, []int{1, 2, 3}, out)
	require.True(t, page.HasMore)
	require.Equal(t, "3", page.NextCursor)

	out, page = Trim(data, 10, func(i int) string { return strconv.Itoa(i) })
	require.Len(t, out, 4)
	require.False(t, page.HasMore)
}

func TestPageSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.PageSize())
	require.Equal(t, 25, Pagination{Limit: 25}.PageSize())
	require.Equal(t, MaxLimit, Pagination{Limit: 1000}.PageSize())
}

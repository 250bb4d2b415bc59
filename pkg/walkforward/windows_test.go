package walkforward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateWindowsLayout(t *testing.T) {
	// 30 days from 2021-01-01 with 6d train / 7d test.
	windows, err := GenerateWindows(day(2021, 1, 1), day(2021, 1, 30), 6, 7)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Equal(t, day(2021, 1, 1), windows[0].TrainStart)
	assert.Equal(t, day(2021, 1, 6), windows[0].TrainEnd)
	assert.Equal(t, day(2021, 1, 7), windows[0].TestStart)
	assert.Equal(t, day(2021, 1, 13), windows[0].TestEnd)

	// The second window advances by the test length.
	assert.Equal(t, day(2021, 1, 8), windows[1].TrainStart)
	assert.Equal(t, day(2021, 1, 13), windows[1].TrainEnd)
	assert.Equal(t, day(2021, 1, 14), windows[1].TestStart)
	assert.Equal(t, day(2021, 1, 20), windows[1].TestEnd)

	assert.Equal(t, day(2021, 1, 15), windows[2].TrainStart)
	assert.Equal(t, day(2021, 1, 27), windows[2].TestEnd)
}

func TestGenerateWindowsTestSlicesTile(t *testing.T) {
	windows, err := GenerateWindows(day(2021, 1, 1), day(2021, 3, 31), 10, 5)
	require.NoError(t, err)
	require.NotEmpty(t, windows)

	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		assert.Equal(t, prev.TestEnd.Add(24*time.Hour), cur.TestStart,
			"test slices must tile without gap or overlap")
	}
	last := windows[len(windows)-1]
	assert.False(t, last.TestEnd.After(day(2021, 3, 31)))
}

func TestGenerateWindowsTooShortRange(t *testing.T) {
	windows, err := GenerateWindows(day(2021, 1, 1), day(2021, 1, 5), 6, 7)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestGenerateWindowsInvalidInput(t *testing.T) {
	_, err := GenerateWindows(day(2021, 1, 1), day(2021, 1, 30), 0, 7)
	assert.Error(t, err)

	_, err = GenerateWindows(day(2021, 1, 30), day(2021, 1, 1), 6, 7)
	assert.Error(t, err)
}

package csvfeed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBasic(t *testing.T) {
	doc := `time,open,high,low,close,volume
2024-01-02,100,102,99,101,5000
2024-01-03,101,104,100,103,6200
2024-01-04,103,103.5,101,102,4100
`
	s, err := Read(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{101, 103, 102}, s.Closes())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Bar(0).Time)
	assert.Equal(t, 5000.0, s.Bar(0).Volume)
}

func TestReadNoVolumeColumn(t *testing.T) {
	doc := `date,open,high,low,close
2024-01-02T00:00:00Z,100,102,99,101
2024-01-03T00:00:00Z,101,104,100,103
`
	s, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.HasVolume())
}

func TestReadUnixSeconds(t *testing.T) {
	doc := `time,open,high,low,close
1704153600,100,102,99,101
1704240000,101,104,100,103
`
	s, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, int64(1704153600), s.Bar(0).Time.Unix())
}

func TestReadRejectsMissingColumns(t *testing.T) {
	doc := `time,open,close
2024-01-02,100,101
`
	_, err := Read(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestReadRejectsBadNumber(t *testing.T) {
	doc := `time,open,high,low,close
2024-01-02,100,102,99,abc
`
	_, err := Read(strings.NewReader(doc))
	assert.Error(t, err)
}

// Series invariants still apply after parsing.
func TestReadRejectsUnsortedRows(t *testing.T) {
	doc := `time,open,high,low,close
2024-01-03,101,104,100,103
2024-01-02,100,102,99,101
`
	_, err := Read(strings.NewReader(doc))
	assert.Error(t, err)
}

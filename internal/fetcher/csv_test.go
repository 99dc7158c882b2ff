package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader("name,x,y\nAuburn High School,145.046,-37.824\n"), CSVOptions{HasHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "x", "y"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Auburn High School", "145.046", "-37.824"}, rows[0])
}

func TestReadCSV_NoHeader(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Len(t, rows, 2)
}

func TestReadCSV_TrimSpaceAndRagged(t *testing.T) {
	_, rows, err := ReadCSV(strings.NewReader(" a , b \nc\n"), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b"}, rows[0])
	assert.Equal(t, []string{"c"}, rows[1])
}

func TestReadCSV_Empty(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader(""), CSVOptions{HasHeader: true})
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Empty(t, rows)
}

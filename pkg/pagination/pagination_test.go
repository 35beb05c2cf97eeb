package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestParseClampsLimit(t *testing.T) {
	p, err := Parse("3", "500")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 2*MaxLimit, p.Offset)

	p, err = Parse("1", "0")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Limit)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("abc", "")
	require.Error(t, err)

	_, err = Parse("", "ten")
	require.Error(t, err)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(10, 0))
	assert.Equal(t, 1, TotalPages(10, 20))
	assert.Equal(t, 3, TotalPages(41, 20))
}

func TestNewResponse(t *testing.T) {
	p := &Params{Page: 2, Limit: 20, Offset: 20}
	resp := NewResponse(p, 41, []string{"a"})
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, int64(41), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
}

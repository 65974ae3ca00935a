package sqldao

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		p       Pagination
		offset  int
		pages   int
		hasNext bool
	}{
		{Pagination{Page: 1, Size: 25, Total: 0}, 0, 0, false},
		{Pagination{Page: 2, Size: 2, Total: 30}, 2, 15, true},
		{Pagination{Page: 8, Size: 4, Total: 30}, 28, 8, false},
		{Pagination{Page: 9, Size: 4, Total: 30}, 32, 8, false},
		{Pagination{Page: 0, Size: 4, Total: 30}, 0, 8, true},
		{Pagination{Page: math.MaxInt/20 + 2, Size: 25, Total: 30}, math.MaxInt, 2, false},
		{Pagination{Page: math.MaxInt, Size: math.MaxInt, Total: 30}, math.MaxInt, 1, false},
		{Pagination{Page: 3, Size: 0, Total: 30}, 0, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.offset, tt.p.Offset(), "%+v", tt.p)
		assert.Equal(t, tt.pages, tt.p.Pages(), "%+v", tt.p)
		assert.Equal(t, tt.hasNext, tt.p.HasNext(), "%+v", tt.p)
	}
}

func TestPageToken(t *testing.T) {
	p := Pagination{Page: 3, Size: 10, Total: 95}
	got, err := ParsePageToken(p.Token())
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 3, Size: 10}, got)

	next, err := ParsePageToken(p.NextToken())
	require.NoError(t, err)
	assert.Equal(t, 4, next.Page)
	assert.Empty(t, Pagination{Page: 10, Size: 10, Total: 95}.NextToken())

	_, err = ParsePageToken("not base64!")
	require.Error(t, err)
	_, err = ParsePageToken(Pagination{Page: 0, Size: 10}.Token())
	require.ErrorContains(t, err, "out of range")
}

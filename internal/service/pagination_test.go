package service

import (
	"testing"

	"blogsite/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		count    int64
		raw      string
		number   int
		numPages int
		next     bool
		prev     bool
	}{
		{name: "default first page", count: 12, raw: "", number: 1, numPages: 3, next: true},
		{name: "middle page", count: 12, raw: "2", number: 2, numPages: 3, next: true, prev: true},
		{name: "last keyword", count: 12, raw: "last", number: 3, numPages: 3, prev: true},
		{name: "exact multiple", count: 10, raw: "2", number: 2, numPages: 2, prev: true},
		{name: "empty listing", count: 0, raw: "", number: 1, numPages: 1},
		{name: "empty listing last", count: 0, raw: "last", number: 1, numPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Paginate(tt.count, 5, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.number, page.Number)
			assert.Equal(t, tt.numPages, page.NumPages)
			assert.Equal(t, tt.next, page.HasNext)
			assert.Equal(t, tt.prev, page.HasPrevious)
			assert.Equal(t, (tt.number-1)*5, page.Offset())
			if tt.next {
				require.NotNil(t, page.NextPageNumber)
				assert.Equal(t, tt.number+1, *page.NextPageNumber)
			} else {
				assert.Nil(t, page.NextPageNumber)
			}
		})
	}
}

func TestPaginate_NotFound(t *testing.T) {
	for _, raw := range []string{"0", "-1", "4", "abc", "1.5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Paginate(12, 5, raw)
			requireCode(t, err, models.CodeNotFound)
		})
	}
}

package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
		want  Params
	}{
		{"defaults on zero", 0, 0, Params{Page: 1, Limit: 20, Offset: 0}},
		{"negative values", -3, -1, Params{Page: 1, Limit: 20, Offset: 0}},
		{"limit capped", 2, 500, Params{Page: 2, Limit: 100, Offset: 100}},
		{"offset from page", 3, 10, Params{Page: 3, Limit: 10, Offset: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.page, tt.limit))
		})
	}
}

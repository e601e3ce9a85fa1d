package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInputSignature_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b InputSignature
		want bool
	}{
		{name: "identical pointer, no keys", a: InputSignature{X: 1, Y: 2}, b: InputSignature{X: 1, Y: 2}, want: true},
		{name: "pointer moved", a: InputSignature{X: 1, Y: 2}, b: InputSignature{X: 1, Y: 3}, want: false},
		{name: "key newly pressed", a: InputSignature{X: 1, Y: 2}, b: InputSignature{X: 1, Y: 2, Keys: []string{"a"}}, want: false},
		{name: "same keys different order", a: InputSignature{Keys: []string{"a", "shift"}}, b: InputSignature{Keys: []string{"shift", "a"}}, want: true},
		{name: "same length different keys", a: InputSignature{Keys: []string{"a", "a"}}, b: InputSignature{Keys: []string{"a", "b"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestCategorySnapshot_Lookup(t *testing.T) {
	snap := CategorySnapshot{
		Categories: []Category{
			{ID: "work", Name: "Work", IsProductive: true},
			{ID: "fun", Name: "Entertainment"},
		},
		AppCategories: map[string]string{
			"Code":    "work",
			"Spotify": "fun",
			"Ghost":   "deleted-category",
		},
	}

	cat := snap.Lookup("Code")
	if assert.NotNil(t, cat) {
		assert.Equal(t, "Work", cat.Name)
		assert.True(t, cat.IsProductive)
	}
	assert.Nil(t, snap.Lookup("Terminal"), "unmapped app is uncategorized")
	assert.Nil(t, snap.Lookup("Ghost"), "mapping to a missing category is uncategorized")
}

func TestActivity_DurationSeconds(t *testing.T) {
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	a := Activity{StartTime: start, EndTime: start.Add(90*time.Second + 900*time.Millisecond)}
	assert.Equal(t, int64(90), a.DurationSeconds())
}

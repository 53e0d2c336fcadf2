package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryBoundaries(t *testing.T) {
	cases := []struct {
		value int
		want  string
	}{
		{0, CategoryGood},
		{50, CategoryGood},
		{51, CategoryModerate},
		{100, CategoryModerate},
		{101, CategorySensitive},
		{150, CategorySensitive},
		{151, CategoryUnhealthy},
		{200, CategoryUnhealthy},
		{201, CategoryVeryUnhealthy},
		{300, CategoryVeryUnhealthy},
		{301, CategoryHazardous},
		{999, CategoryHazardous},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Category(tc.value), "value %d", tc.value)
	}
}

func TestCategoryNegativeSentinel(t *testing.T) {
	// Negative sentinels used by failed fetches still map onto the scale.
	assert.Equal(t, CategoryGood, Category(-1))
	assert.Equal(t, CategoryGood, Category(-999))
}

func TestCategoryMonotonic(t *testing.T) {
	rank := make(map[string]int, len(Categories))
	for i, c := range Categories {
		rank[c] = i
	}

	prev := 0
	for v := -10; v <= 400; v++ {
		r, ok := rank[Category(v)]
		if !ok {
			t.Fatalf("unknown category %q for %d", Category(v), v)
		}
		if r < prev {
			t.Fatalf("severity decreased at %d", v)
		}
		prev = r
	}
}

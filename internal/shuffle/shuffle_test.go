package shuffle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/secplus-trainer/backend/internal/shuffle"
)

func TestShuffled_DoesNotModifyInput(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	out := shuffle.Shuffled(shuffle.NewSeeded(1), in)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, in)
	assert.ElementsMatch(t, in, out)
}

func TestSeededSourceIsDeterministic(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	a := shuffle.Shuffled(shuffle.NewSeeded(42), in)
	b := shuffle.Shuffled(shuffle.NewSeeded(42), in)

	assert.Equal(t, a, b)
}

func TestSample(t *testing.T) {
	src := shuffle.NewSeeded(7)
	in := []int{1, 2, 3, 4, 5}

	assert.Len(t, shuffle.Sample(src, in, 3), 3)
	assert.Len(t, shuffle.Sample(src, in, 50), 5)
	assert.Empty(t, shuffle.Sample(src, in, 0))
}

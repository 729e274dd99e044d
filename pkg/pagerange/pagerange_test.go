package pagerange

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-service/pkg/errors"
)

func TestResolve_Range(t *testing.T) {
	sel, err := Resolve(ModeRange, Params{Start: 2, End: 4}, 5)
	require.NoError(t, err)

	require.Len(t, sel.Groups, 1)
	assert.Equal(t, []int{1, 2, 3}, sel.Groups[0].Pages)
	assert.Equal(t, "2_to_4", sel.Groups[0].Label())
}

func TestResolve_RangeRejectsOutOfBounds(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
	}{
		{"start below one", 0, 2},
		{"end past total", 3, 6},
		{"start after end", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(ModeRange, Params{Start: tt.start, End: tt.end}, 5)
			assert.True(t, errors.HasCode(err, errors.ErrorCodeInvalidRange))
		})
	}
}

func TestResolve_FixedCount(t *testing.T) {
	sel, err := Resolve(ModeFixedCount, Params{PagesPerSplit: 4}, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{4, 4, 2}, sel.Sizes())
	labels := make([]string, 0, len(sel.Groups))
	for _, g := range sel.Groups {
		labels = append(labels, g.Label())
	}
	assert.Equal(t, []string{"1_to_4", "5_to_8", "9_to_10"}, labels)
}

func TestResolve_FixedCountRejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := Resolve(ModeFixedCount, Params{PagesPerSplit: n}, 10)
		assert.True(t, errors.HasCode(err, errors.ErrorCodeValidation), "n=%d", n)
	}
}

func TestResolve_SizeBoundedKeepsCrossingPage(t *testing.T) {
	const mb = 1024 * 1024
	// each page weighs 0.4 MB, so a 1 MB bound closes a chunk on its third page
	measure := func(pages []int) (int64, error) {
		return int64(len(pages)) * 4 * mb / 10, nil
	}

	sel, err := Resolve(ModeSizeBounded, Params{MaxSizeMB: 1, Measure: measure}, 7)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 1}, sel.Sizes())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, sel.Pages())
}

func TestResolve_SizeBoundedPropagatesMeasureError(t *testing.T) {
	measure := func(pages []int) (int64, error) {
		return 0, fmt.Errorf("encode failed")
	}

	_, err := Resolve(ModeSizeBounded, Params{MaxSizeMB: 1, Measure: measure}, 3)
	assert.EqualError(t, err, "encode failed")
}

func TestResolve_SizeBoundedRejectsNonPositive(t *testing.T) {
	_, err := Resolve(ModeSizeBounded, Params{MaxSizeMB: 0}, 3)
	assert.True(t, errors.HasCode(err, errors.ErrorCodeValidation))
}

func TestResolve_Permutation(t *testing.T) {
	sel, err := Resolve(ModePermutation, Params{Order: []int{3, 1, 2}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, sel.Pages())
}

func TestResolve_PermutationAcceptsOnlyBijections(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{"duplicate page", []int{1, 1, 3}},
		{"missing page", []int{1, 2}},
		{"page past total", []int{1, 2, 4}},
		{"zero page", []int{0, 1, 2}},
		{"extra page", []int{1, 2, 3, 3}},
		{"empty order", []int{}},
		{"no order", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(ModePermutation, Params{Order: tt.order}, 3)
			assert.ErrorIs(t, err, errors.ErrInvalidOrder)
		})
	}
}

func TestResolve_Deletion(t *testing.T) {
	sel, err := Resolve(ModeDeletion, Params{Delete: []int{2, 4}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, sel.Pages())
}

func TestResolve_DeletionIgnoresRepeats(t *testing.T) {
	sel, err := Resolve(ModeDeletion, Params{Delete: []int{2, 2}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, sel.Pages())
}

func TestResolve_DeletionErrors(t *testing.T) {
	_, err := Resolve(ModeDeletion, Params{Delete: []int{6}}, 5)
	assert.ErrorIs(t, err, errors.ErrInvalidPageIndex)

	_, err = Resolve(ModeDeletion, Params{Delete: []int{1, 2}}, 2)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestResolve_UnknownModeAndEmptyDocument(t *testing.T) {
	_, err := Resolve(Mode("shuffle"), Params{}, 3)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = Resolve(ModeRange, Params{Start: 1, End: 1}, 0)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

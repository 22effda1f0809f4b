// Copyright (c) 2026 Costar. All rights reserved.

package pair_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegraph/costar/internal/graph/builder"
	"github.com/moviegraph/costar/internal/graph/pair"
	"github.com/moviegraph/costar/pkg/pointer"
)

/*
TestNormalize tests canonical pair ordering and identity validation.
*/
func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		wantLow  int64
		wantHigh int64
		wantErr  error
	}{
		{"already_ordered", 3, 9, 3, 9, nil},
		{"reversed", 9, 3, 3, 9, nil},
		{"same_person", 5, 5, 0, 0, pair.ErrSamePerson},
		{"zero_id", 0, 7, 0, 0, pair.ErrInvalidPerson},
		{"negative_id", 4, -1, 0, 0, pair.ErrInvalidPerson},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high, err := pair.Normalize(tt.a, tt.b)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
			assert.Less(t, low, high)
		})
	}
}

/*
TestRecompute_Empty checks the zero aggregate for an empty detail set.
*/
func TestRecompute_Empty(t *testing.T) {
	aggregate := pair.Recompute(nil)

	assert.Zero(t, aggregate.CollaborationCount)
	assert.Nil(t, aggregate.AvgRating)
	assert.Nil(t, aggregate.TotalRevenue)
	assert.Empty(t, aggregate.Types)
}

/*
TestRecompute_UnknownFigures verifies that missing ratings and revenues are
excluded from the aggregate instead of being counted as zero.
*/
func TestRecompute_UnknownFigures(t *testing.T) {
	details := []pair.Detail{
		{WorkID: 1, ReleaseYear: 2018, Rating: pointer.To(8.0), Revenue: nil, Type: builder.TypePerformerPerformer},
		{WorkID: 2, ReleaseYear: 2020, Rating: nil, Revenue: pointer.To(int64(50_000_000)), Type: builder.TypePerformerPerformer},
		{WorkID: 3, ReleaseYear: 2022, Rating: pointer.To(6.0), Revenue: pointer.To(int64(25_000_000)), Type: builder.TypePerformerDirector},
	}

	aggregate := pair.Recompute(details)

	assert.Equal(t, 3, aggregate.CollaborationCount)
	assert.Equal(t, 2018, aggregate.FirstYear)
	assert.Equal(t, 2022, aggregate.LastYear)

	// Average over the two rated works only, not divided by three.
	require.NotNil(t, aggregate.AvgRating)
	assert.InDelta(t, 7.0, *aggregate.AvgRating, 0.0001)

	// Revenue sums the two known figures.
	require.NotNil(t, aggregate.TotalRevenue)
	assert.Equal(t, int64(75_000_000), *aggregate.TotalRevenue)

	// Sorted union of collaboration types.
	assert.Equal(t, []string{builder.TypePerformerDirector, builder.TypePerformerPerformer}, aggregate.Types)
}

/*
TestRecompute_AllFiguresUnknown keeps the aggregate figures nil when no
detail carries a rating or revenue.
*/
func TestRecompute_AllFiguresUnknown(t *testing.T) {
	details := []pair.Detail{
		{WorkID: 1, ReleaseYear: 2015, Type: builder.TypeDirectorDirector},
		{WorkID: 2, ReleaseYear: 2017, Type: builder.TypeDirectorDirector},
	}

	aggregate := pair.Recompute(details)

	assert.Equal(t, 2, aggregate.CollaborationCount)
	assert.Nil(t, aggregate.AvgRating)
	assert.Nil(t, aggregate.TotalRevenue)
	assert.Equal(t, []string{builder.TypeDirectorDirector}, aggregate.Types)
}

package storybook_test

import (
	"testing"

	"kidzy-server/internal/storybook"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigate(t *testing.T) {
	const last = 5
	testCases := []struct {
		name string
		from models.ViewState
		dir  storybook.Direction
		want models.ViewState
	}{
		{"next from cover", models.ViewState{Page: 0}, storybook.DirectionNext, models.ViewState{Page: 1}},
		{"next from middle", models.ViewState{Page: 3}, storybook.DirectionNext, models.ViewState{Page: 4}},
		{"next from last enters guide", models.ViewState{Page: last}, storybook.DirectionNext, models.ViewState{Page: last, ColorGuide: true}},
		{"next in guide is no-op", models.ViewState{Page: last, ColorGuide: true}, storybook.DirectionNext, models.ViewState{Page: last, ColorGuide: true}},
		{"prev from guide returns to last", models.ViewState{Page: last, ColorGuide: true}, storybook.DirectionPrev, models.ViewState{Page: last}},
		{"prev from page", models.ViewState{Page: 2}, storybook.DirectionPrev, models.ViewState{Page: 1}},
		{"prev on cover is no-op", models.ViewState{Page: 0}, storybook.DirectionPrev, models.ViewState{Page: 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := storybook.Navigate(tc.from, last, tc.dir)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := storybook.Navigate(models.ViewState{}, last, "sideways")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

package storybook

import (
	"fmt"

	"kidzy-server/shared/models"
)

// Direction - направление листания книги.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// Navigate вычисляет следующую позицию просмотра. lastPage - ID последней страницы.
// После последней страницы открывается цветовой гид; из гида назад - последняя страница.
// Назад с обложки и вперед из гида ничего не меняют.
func Navigate(v models.ViewState, lastPage int, dir Direction) (models.ViewState, error) {
	switch dir {
	case DirectionNext:
		if v.ColorGuide {
			return v, nil
		}
		if v.Page < lastPage {
			return models.ViewState{Page: v.Page + 1}, nil
		}
		return models.ViewState{Page: lastPage, ColorGuide: true}, nil
	case DirectionPrev:
		if v.ColorGuide {
			return models.ViewState{Page: lastPage}, nil
		}
		if v.Page > 0 {
			return models.ViewState{Page: v.Page - 1}, nil
		}
		return v, nil
	default:
		return v, fmt.Errorf("%w: unknown direction %q", models.ErrInvalidInput, dir)
	}
}

func lastPageID(story *models.Story) int {
	last := 0
	for _, p := range story.Pages {
		if p.ID > last {
			last = p.ID
		}
	}
	return last
}

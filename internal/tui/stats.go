package tui

import (
	"math"

	"github.com/idilsaglam/tada/internal/model"
)

// Stats returns the list size, how many are completed and the completed
// percentage rounded to the nearest integer (0 for an empty list).
func Stats(todos []model.Todo) (total, completed, percent int) {
	total = len(todos)
	for _, t := range todos {
		if t.Completed {
			completed++
		}
	}
	if total > 0 {
		percent = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return total, completed, percent
}

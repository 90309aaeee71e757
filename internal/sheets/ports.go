// Package sheets defines the ports for exporting inventory rows to a
// spreadsheet.
package sheets

import (
	"context"

	"expirygenie/internal/core"
)

// ItemWriter appends one food item row to the export sheet and returns
// a reference to where it landed.
type ItemWriter interface {
	Append(ctx context.Context, item core.FoodItem) (string, error)
}

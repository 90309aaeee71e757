package gemini

import (
	"context"

	"expirygenie/internal/core"
)

const (
	ImageReceipt ImageKind = "receipt"
	ImageBarcode ImageKind = "barcode"
	ImagePhoto   ImageKind = "photo"
)

// ImageKind selects the prompt used for an uploaded image.
type ImageKind string

func (k ImageKind) Valid() bool {
	return k == ImageReceipt || k == ImageBarcode || k == ImagePhoto
}

type (
	// Extractor turns voice transcripts and images into food item drafts.
	Extractor interface {
		ExtractFromText(ctx context.Context, text string, today core.Date) ([]core.FoodItem, error)
		ExtractFromImage(ctx context.Context, data []byte, mimeType string, kind ImageKind, today core.Date) ([]core.FoodItem, error)
	}

	// Advisor generates free-text advice from the current inventory.
	Advisor interface {
		SuggestRecipes(ctx context.Context, expiring []core.FoodItem) (string, error)
		AnalyzeWaste(ctx context.Context, expired []core.FoodItem) (string, error)
		ShoppingList(ctx context.Context, items []core.FoodItem) (string, error)
		DetectDuplicates(ctx context.Context, drafts, existing []core.FoodItem) (DuplicateReport, error)
	}
)

// DuplicateReport flags extracted drafts that look like repeat
// purchases of something already stocked.
type DuplicateReport struct {
	// Duplicates holds names of drafts that appear to duplicate an
	// existing item.
	Duplicates []string
	// Recommendations are short notes on what to do about them.
	Recommendations []string
}

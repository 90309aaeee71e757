// Package gemini calls the Gemini API to pull structured food items out
// of voice transcripts and photos, and to generate inventory advice.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"expirygenie/internal/core"
)

const DefaultModel = "gemini-2.0-flash"

const extractionFormat = `Respond with a JSON array. Each element has the fields:
"name" (string), "quantity" (string, e.g. "2" or "1 gallon"),
"category" (string), "expiry_days" (integer, estimated days until the
item expires from today). Respond with [] when no food items are found.`

type Client struct {
	client *genai.Client
	model  string
}

var (
	_ Extractor = (*Client)(nil)
	_ Advisor   = (*Client)(nil)
)

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// ExtractFromText parses a voice transcript like "2 gallons of milk and
// some strawberries" into item drafts.
func (c *Client) ExtractFromText(ctx context.Context, text string, today core.Date) ([]core.FoodItem, error) {
	prompt := fmt.Sprintf(`Extract the food items from this spoken grocery note:

%q

%s`, text, extractionFormat)

	raw, err := c.generateJSON(ctx, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("extract from text: %w", err)
	}
	return ParseExtraction(raw, today)
}

// ExtractFromImage parses a receipt, barcode or food photo into item
// drafts.
func (c *Client) ExtractFromImage(ctx context.Context, data []byte, mimeType string, kind ImageKind, today core.Date) ([]core.FoodItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported image kind: %s", kind)
	}

	var task string
	switch kind {
	case ImageReceipt:
		task = "Extract the food items from this grocery receipt. Ignore non-food lines, totals and taxes."
	case ImageBarcode:
		task = "Identify the product behind the barcode in this image."
	case ImagePhoto:
		task = "Identify the food items visible in this photo."
	}

	parts := []*genai.Part{
		genai.NewPartFromText(task + "\n\n" + extractionFormat),
		genai.NewPartFromBytes(data, mimeType),
	}
	raw, err := c.generateJSON(ctx, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("extract from %s image: %w", kind, err)
	}
	return ParseExtraction(raw, today)
}

// SuggestRecipes asks for recipes built around items about to expire.
func (c *Client) SuggestRecipes(ctx context.Context, expiring []core.FoodItem) (string, error) {
	if len(expiring) == 0 {
		return "", nil
	}
	prompt := fmt.Sprintf(`These ingredients expire within a few days: %s.

Suggest 3 simple recipes that use as many of them as possible. For each
recipe give a name, the ingredients from the list it uses, and 2-3
preparation steps. Keep it short.`, itemNames(expiring))

	return c.generateText(ctx, prompt)
}

// AnalyzeWaste summarizes what keeps getting thrown away and how to
// stop it.
func (c *Client) AnalyzeWaste(ctx context.Context, expired []core.FoodItem) (string, error) {
	if len(expired) == 0 {
		return "", nil
	}
	prompt := fmt.Sprintf(`These food items expired before being used: %s.

Point out any patterns and give 3 practical tips to waste less of these
foods. Keep it short.`, itemNames(expired))

	return c.generateText(ctx, prompt)
}

// ShoppingList proposes what to buy given what is already stocked.
func (c *Client) ShoppingList(ctx context.Context, items []core.FoodItem) (string, error) {
	have := itemNames(items)
	if have == "" {
		have = "nothing"
	}
	prompt := fmt.Sprintf(`A household currently has: %s.

Propose a short shopping list of staples they are likely missing,
grouped by store section. Keep it short.`, have)

	return c.generateText(ctx, prompt)
}

// DetectDuplicates asks whether any freshly extracted drafts duplicate
// items the household already has.
func (c *Client) DetectDuplicates(ctx context.Context, drafts, existing []core.FoodItem) (DuplicateReport, error) {
	if len(drafts) == 0 || len(existing) == 0 {
		return DuplicateReport{}, nil
	}
	prompt := fmt.Sprintf(`A household is about to add these groceries: %s.
They already have: %s.

Which of the new items duplicate something already stocked? Treat
variants of the same food (e.g. "milk" and "whole milk") as duplicates.
Respond with a JSON object with the fields:
"duplicates" (array of new item names that are duplicates) and
"recommendations" (array of short strings, one per duplicate).`,
		itemNames(drafts), itemNames(existing))

	raw, err := c.generateJSON(ctx, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	})
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("detect duplicates: %w", err)
	}
	return ParseDuplicateReport(raw)
}

func (c *Client) generateJSON(ctx context.Context, contents []*genai.Content) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("generate advice: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}

func itemNames(items []core.FoodItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name
		if item.Quantity != "" && item.Quantity != "1" {
			name = item.Quantity + " " + name
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

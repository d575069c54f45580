package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gitlab.com/yelinaung/expense-client/internal/logger"
	"google.golang.org/genai"
)

const (
	// MaxNameLength bounds the expense name embedded in a prompt.
	MaxNameLength = 200
	// MaxCategoryLength bounds each category embedded in a prompt.
	MaxCategoryLength = 50

	suggestTimeout     = 10 * time.Second
	maxReasoningLength = 300
)

// DefaultCategories are offered alongside the categories already in use.
var DefaultCategories = []string{
	"Food",
	"Transport",
	"Housing",
	"Utilities",
	"Entertainment",
	"Health",
	"Shopping",
	"Other",
}

// Suggestion is a proposed category for an expense name.
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Candidates merges the categories in use with DefaultCategories,
// dropping blanks and case-insensitive duplicates. Used categories come first.
func Candidates(used []string) []string {
	out := make([]string, 0, len(used)+len(DefaultCategories))
	for _, c := range slices.Concat(used, DefaultCategories) {
		c = SanitizeForPrompt(c, MaxCategoryLength)
		if c == "" {
			continue
		}
		if slices.ContainsFunc(out, func(existing string) bool { return strings.EqualFold(existing, c) }) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SuggestCategory picks the best of categories for an expense name.
// The answer is always one of categories, in the caller's spelling.
func (c *Client) SuggestCategory(ctx context.Context, name string, categories []string) (*Suggestion, error) {
	if c == nil || c.generator == nil {
		return nil, ErrNotConfigured
	}

	name = SanitizeForPrompt(name, MaxNameLength)
	if name == "" {
		return nil, errors.New("expense name is required")
	}
	if len(categories) == 0 {
		return nil, errors.New("no categories available")
	}

	nameHash := logger.SanitizeName(name)
	log := logger.Log.With().Str("name", nameHash).Int("category_count", len(categories)).Logger()

	ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(ctx, ModelName,
		[]*genai.Content{genai.NewContentFromText(buildPrompt(name, categories), genai.RoleUser)},
		suggestionConfig(categories),
	)
	if err != nil {
		log.Error().Err(err).Msg("Gemini category suggestion failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return nil, errors.New("no response from Gemini")
	}

	jsonText := extractJSON(resp.Text())
	if jsonText == "" {
		log.Warn().Msg("No JSON in Gemini response")
		return nil, errors.New("no JSON found in response")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(jsonText), &s); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}

	idx := slices.IndexFunc(categories, func(cat string) bool { return strings.EqualFold(cat, s.Category) })
	if idx < 0 {
		log.Warn().Msg("Gemini suggested an unknown category")
		return nil, fmt.Errorf("suggested category %q not in available categories", s.Category)
	}
	s.Category = categories[idx]

	if s.Confidence < 0 || s.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", s.Confidence)
	}

	s.Reasoning = SanitizeForPrompt(s.Reasoning, maxReasoningLength)

	log.Debug().
		Str("category", s.Category).
		Float64("confidence", s.Confidence).
		Msg("Category suggested")

	return &s, nil
}

func suggestionConfig(categories []string) *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 300,
		SystemInstruction: genai.NewContentFromText(
			"You classify personal expenses. Respond with a single JSON object and nothing else.",
			genai.RoleUser,
		),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category":   {Type: genai.TypeString, Enum: categories},
				"confidence": {Type: genai.TypeNumber, Description: "Between 0 and 1"},
				"reasoning":  {Type: genai.TypeString, Description: "One short sentence"},
			},
			Required: []string{"category", "confidence", "reasoning"},
		},
	}
}

func buildPrompt(name string, categories []string) string {
	return fmt.Sprintf(`Which category fits the expense "%s"?

Categories:
- %s

Use a confidence of 0.8 or more only when the name is unambiguous.
Return {"category": "...", "confidence": 0.0, "reasoning": "..."}`,
		name, strings.Join(categories, "\n- "))
}

// extractJSON returns the outermost {...} in text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// SanitizeForPrompt flattens whitespace, strips characters that could
// close a quoted prompt string, and truncates to maxLength bytes.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.NewReplacer(`"`, `'`, "`", `'`, "\x00", "").Replace(input)
	input = strings.Join(strings.Fields(input), " ")
	if len(input) > maxLength {
		input = strings.TrimSpace(input[:maxLength])
	}
	return input
}

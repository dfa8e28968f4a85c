package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultModel = anthropic.ModelClaudeSonnet4_5

// boundaryPrompt is the instruction contract for the classifier: return
// only positions where a different, self-contained text begins, never
// sentence or paragraph breaks, conservatively, always including 0.
const boundaryPrompt = `You are an expert scholar of Tibetan texts with deep experience in textual criticism, canon structure, and discourse analysis.

You are given a SINGLE continuous block of text.
This text MAY contain multiple DISTINCT Tibetan texts concatenated together.

IMPORTANT:
Your task is NOT to segment sentences or paragraphs.

Your task is ONLY to identify boundaries where a COMPLETELY DIFFERENT TEXT begins.
- most of the text normally start with "༄༅༅། །"
A new text boundary should be marked ONLY if there is a clear and strong CONTEXTUAL SHIFT, such as:
- Change of genre (e.g., prayer → commentary, verse → prose)
- Change of speaker or authorial voice
- Change of purpose (e.g., invocation → philosophical exposition)
- Change of doctrinal scope or topic that indicates a new standalone text
- Change in register that clearly signals a separate composition

DO NOT mark boundaries for:
- Sentence endings
- Paragraph breaks
- Line breaks
- Punctuation
- Minor topic shifts within the same text
- Structural markers that still belong to the same work

RULES FOR OUTPUT:
1. Return ONLY starting character positions (0-indexed) where a NEW text begins
2. Always include 0 as the first starting position
3. Only include additional positions if you are confident a DIFFERENT TEXT starts there
4. Be conservative — if unsure, DO NOT add a boundary
5. Count characters precisely, including spaces and newlines

TEXT:
%s

OUTPUT FORMAT (JSON ONLY):
{
  "starting_positions": [0, 456, 1823]
}

If the entire content is a single coherent text, return:
{
  "starting_positions": [0]
}`

// Classifier implements boundary classification against the Anthropic API.
type Classifier struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewClassifier creates a classifier with the given API key. Model may be
// empty to use the default.
func NewClassifier(apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	c := &Classifier{
		client: &client,
		model:  defaultModel,
	}
	if model != "" {
		c.model = anthropic.Model(model)
	}
	return c, nil
}

// ClassifyBoundaries sends the full text to the model and returns the raw
// completion. The caller owns the timeout on ctx and output parsing.
func (c *Classifier) ClassifyBoundaries(ctx context.Context, text string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(boundaryPrompt, text))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

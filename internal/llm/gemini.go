package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

const classifyPrompt = `You classify one form field's business logic into a form-fill rule type.
Reply with a single JSON object and nothing else:
{"actionType": one of MAKE_VISIBLE, MAKE_INVISIBLE, MAKE_MANDATORY, MAKE_NON_MANDATORY, MAKE_DISABLED, VERIFY, OCR, EXT_DROP_DOWN, EXT_VALUE, COPY_TO, NONE,
 "documentClass": one of PAN, GSTIN, BANK, MSME, CIN, AADHAAR or "",
 "confidence": 0.0 to 1.0,
 "reason": short explanation}

Field name: %s
Field type: %s
Panel: %s
Logic text: %s`

// GeminiClassifier is an optional Classifier backed by the Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a Gemini-backed fallback classifier.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// Classify asks the model for a best-guess rule selection.
func (g *GeminiClassifier) Classify(ctx context.Context, logicText string, fieldCtx FieldContext) (*Selection, error) {
	prompt := fmt.Sprintf(classifyPrompt, fieldCtx.Name, fieldCtx.FieldType, fieldCtx.PanelName, logicText)

	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini classify failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	var sel Selection
	if err := json.Unmarshal([]byte(extractJSON(text)), &sel); err != nil {
		return nil, fmt.Errorf("failed to parse gemini selection: %w", err)
	}
	return &sel, nil
}

// extractJSON strips code fences or prose around the JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

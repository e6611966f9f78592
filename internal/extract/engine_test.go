package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/formfill-rulegen/internal/catalog"
	"github.com/a3tai/formfill-rulegen/internal/llm"
	"github.com/a3tai/formfill-rulegen/internal/rules"
	"github.com/a3tai/formfill-rulegen/internal/schema"
)

const gstSchema = `{
  "template": {
    "documentTypes": [
      {
        "name": "GST",
        "formFillMetadatas": [
          {
            "id": 10,
            "formTag": {"name": "GST Details", "type": "PANEL"},
            "formOrder": 1
          },
          {
            "id": 11,
            "formTag": {"name": "Do you have GST?", "type": "DROP_DOWN"},
            "formOrder": 2
          },
          {
            "id": 12,
            "formTag": {"name": "GSTIN Number", "type": "TEXT"},
            "logic": "If the field 'Do you have GST?' values is Yes then make GSTIN Number visible, otherwise invisible. Perform GSTIN validation.",
            "formOrder": 3
          },
          {
            "id": 13,
            "formTag": {"name": "Legal Name of Business", "type": "TEXT"},
            "logic": "Data will come from GSTIN validation",
            "formOrder": 4
          },
          {
            "id": 14,
            "formTag": {"name": "Upload GSTIN Certificate", "type": "FILE"},
            "logic": "GSTIN details will be extracted from the image",
            "formOrder": 5
          }
        ]
      }
    ]
  }
}`

const gstCatalog = `{
  "content": [
    {
      "id": 601,
      "name": "GSTIN Verification",
      "action": "VERIFY",
      "source": "GSTIN_NUMBER",
      "processingType": "SERVER",
      "button": "Verify",
      "sourceFields": {
        "numberOfItems": 1,
        "fields": [{"name": "GSTIN Number", "ordinal": 1, "mandatory": true}]
      },
      "destinationFields": {
        "numberOfItems": 2,
        "fields": [
          {"name": "Legal Name of Business", "ordinal": 1, "mandatory": true},
          {"name": "Trade Name", "ordinal": 2, "mandatory": false}
        ]
      }
    },
    {
      "id": 602,
      "name": "GSTIN OCR",
      "action": "OCR",
      "source": "GSTIN_IMAGE",
      "processingType": "SERVER",
      "sourceFields": {
        "numberOfItems": 1,
        "fields": [{"name": "GSTIN Image", "ordinal": 1, "mandatory": true}]
      },
      "destinationFields": {
        "numberOfItems": 1,
        "fields": [{"name": "GSTIN Number", "ordinal": 1, "mandatory": true}]
      }
    }
  ]
}`

func runGSTExtraction(t *testing.T, opts Options) (*schema.Document, *Result) {
	t.Helper()
	doc, err := schema.Parse([]byte(gstSchema))
	require.NoError(t, err)
	cat, err := catalog.Parse([]byte(gstCatalog), nil)
	require.NoError(t, err)

	engine := New(doc, cat, opts)
	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	return doc, result
}

func rulesByAction(list []*rules.GeneratedRule, action rules.ActionType) []*rules.GeneratedRule {
	var out []*rules.GeneratedRule
	for _, r := range list {
		if r.ActionType == action {
			out = append(out, r)
		}
	}
	return out
}

func TestEngineEndToEnd(t *testing.T) {
	doc, result := runGSTExtraction(t, Options{})

	require.Len(t, result.Rules, 4)

	visible := rulesByAction(result.Rules, rules.ActionMakeVisible)
	require.Len(t, visible, 1)
	assert.Equal(t, []int{11}, visible[0].SourceIDs,
		"the controlling dropdown is the rule source")
	assert.Equal(t, []int{12}, visible[0].DestinationIDs)
	assert.Equal(t, rules.ConditionIn, visible[0].Condition)
	assert.Equal(t, []string{"Yes"}, visible[0].ConditionalValues)

	invisible := rulesByAction(result.Rules, rules.ActionMakeInvisible)
	require.Len(t, invisible, 1)
	assert.Equal(t, rules.ConditionNotIn, invisible[0].Condition)
	assert.Equal(t, visible[0].DestinationIDs, invisible[0].DestinationIDs)

	verify := rulesByAction(result.Rules, rules.ActionVerify)
	require.Len(t, verify, 1)
	assert.Equal(t, []int{12}, verify[0].SourceIDs)
	assert.Equal(t, "GSTIN_NUMBER", verify[0].SourceType)
	assert.Equal(t, []int{13, rules.NoField}, verify[0].DestinationIDs,
		"catalog ordinal without a document field stays -1")

	ocr := rulesByAction(result.Rules, rules.ActionOCR)
	require.Len(t, ocr, 1)
	assert.Equal(t, []int{14}, ocr[0].SourceIDs)
	assert.Equal(t, []int{12}, ocr[0].DestinationIDs)
	assert.Equal(t, []int{verify[0].ID}, ocr[0].PostTriggerRuleIDs,
		"OCR chains into the verify rule of its extracted-value field")

	// The destination-only field produced no rules of its own.
	for _, r := range result.Rules {
		assert.NotEqual(t, []int{13}, r.SourceIDs)
	}

	// Rules land on their primary source field in the output tree.
	data, err := doc.Marshal()
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"formFillRules"`)
	assert.Contains(t, out, `"actionType": "VERIFY"`)
	assert.Contains(t, out, `"sourceIds"`)
}

func TestEngineIDAllocation(t *testing.T) {
	_, result := runGSTExtraction(t, Options{})

	for _, r := range result.Rules {
		assert.GreaterOrEqual(t, r.ID, DefaultRuleIDBase)
	}

	seen := make(map[int]bool)
	for _, r := range result.Rules {
		assert.False(t, seen[r.ID], "duplicate rule id %d", r.ID)
		seen[r.ID] = true
	}
}

func TestEngineBumpsBaseAboveExistingRules(t *testing.T) {
	withExisting := strings.Replace(gstSchema,
		`"formTag": {"name": "Do you have GST?", "type": "DROP_DOWN"},`,
		`"formTag": {"name": "Do you have GST?", "type": "DROP_DOWN"},
            "formFillRules": [{"id": 9500, "actionType": "VERIFY"}],`,
		1)

	doc, err := schema.Parse([]byte(withExisting))
	require.NoError(t, err)
	cat, err := catalog.Parse([]byte(gstCatalog), nil)
	require.NoError(t, err)

	result, err := New(doc, cat, Options{}).Run(context.Background())
	require.NoError(t, err)
	for _, r := range result.Rules {
		assert.Greater(t, r.ID, 9500,
			"generated ids must clear pre-existing rule ids")
	}
}

func TestEngineReportCounts(t *testing.T) {
	_, result := runGSTExtraction(t, Options{})
	rep := result.Report

	assert.Equal(t, 4, rep.FieldCount, "panel entries are not fields")
	assert.Equal(t, 4, rep.RulesTotal)
	assert.Equal(t, 3, rep.ClassifiedBy.Deterministic,
		"the GSTIN, destination-only, and upload fields classify deterministically")
	assert.Zero(t, rep.ClassifiedBy.Fallback)
	assert.Equal(t, 1, rep.RulesByAction[string(rules.ActionVerify)])
	assert.Equal(t, 1, rep.RulesByAction[string(rules.ActionOCR)])
	assert.NotEmpty(t, rep.RunID)
}

func TestEngineMinConfidenceGatesDeterministicPath(t *testing.T) {
	// Every deterministic pattern weighs in at 0.95 or below, so with no
	// fallback configured a threshold above that drops every field.
	_, result := runGSTExtraction(t, Options{MinConfidence: 0.96})

	assert.Empty(t, result.Rules)
	assert.Zero(t, result.Report.ClassifiedBy.Deterministic)

	reasons := make(map[int]string)
	for _, s := range result.Report.Skips {
		reasons[s.FieldID] = s.Reason
	}
	for _, id := range []int{12, 13, 14} {
		assert.Equal(t, "confidence below threshold", reasons[id],
			"field %d should be dropped, not built from a low-confidence parse", id)
	}
}

func TestEngineOutputDeterministic(t *testing.T) {
	first, _ := runGSTExtraction(t, Options{})
	second, _ := runGSTExtraction(t, Options{})

	a, err := first.Marshal()
	require.NoError(t, err)
	b, err := second.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b),
		"two runs over the same input must emit identical bytes")
}

func TestEngineContextCancellation(t *testing.T) {
	doc, err := schema.Parse([]byte(gstSchema))
	require.NoError(t, err)
	cat, err := catalog.Parse([]byte(gstCatalog), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(doc, cat, Options{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// stubClassifier is a canned fallback for tests.
type stubClassifier struct {
	selection *llm.Selection
	calls     int
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ llm.FieldContext) (*llm.Selection, error) {
	s.calls++
	return s.selection, nil
}

func TestEngineFallbackClassification(t *testing.T) {
	withOpaque := strings.Replace(gstSchema,
		`"logic": "GSTIN details will be extracted from the image",`,
		`"logic": "Refer annexure 4 of the onboarding pack",`,
		1)

	doc, err := schema.Parse([]byte(withOpaque))
	require.NoError(t, err)
	cat, err := catalog.Parse([]byte(gstCatalog), nil)
	require.NoError(t, err)

	stub := &stubClassifier{selection: &llm.Selection{ActionType: "MAKE_DISABLED", Confidence: 0.8}}
	result, err := New(doc, cat, Options{Fallback: stub}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls, "only the unmatched field consults the fallback")
	assert.Equal(t, 1, result.Report.ClassifiedBy.Fallback)

	disabled := rulesByAction(result.Rules, rules.ActionMakeDisabled)
	require.Len(t, disabled, 1)
	assert.Equal(t, []int{14}, disabled[0].SourceIDs)
	assert.Equal(t, rules.ConditionNotIn, disabled[0].Condition)
	assert.Equal(t, []string{"Disable"}, disabled[0].ConditionalValues)
}

func TestEngineLowConfidenceFallbackRejected(t *testing.T) {
	withOpaque := strings.Replace(gstSchema,
		`"logic": "GSTIN details will be extracted from the image",`,
		`"logic": "Refer annexure 4 of the onboarding pack",`,
		1)

	doc, err := schema.Parse([]byte(withOpaque))
	require.NoError(t, err)
	cat, err := catalog.Parse([]byte(gstCatalog), nil)
	require.NoError(t, err)

	stub := &stubClassifier{selection: &llm.Selection{ActionType: "MAKE_DISABLED", Confidence: 0.2}}
	result, err := New(doc, cat, Options{Fallback: stub}).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Report.ClassifiedBy.Fallback)
	assert.Empty(t, rulesByAction(result.Rules, rules.ActionMakeDisabled))

	var skipped bool
	for _, s := range result.Report.Skips {
		if s.FieldID == 14 {
			skipped = true
		}
	}
	assert.True(t, skipped, "the unclassifiable field is reported as skipped")
}

package extract

import (
	"github.com/a3tai/formfill-rulegen/internal/classify"
	"github.com/a3tai/formfill-rulegen/internal/rules"
)

// linkChains connects OCR rules to their VERIFY counterparts: when the field
// receiving an OCR rule's extracted text is the source of a VERIFY rule, the
// VERIFY id is appended to the OCR rule's postTriggerRuleIds. Linking is
// idempotent and only applies to document classes that conventionally have a
// VERIFY counterpart; Aadhaar OCR chains to nothing.
func linkChains(ruleList []*rules.GeneratedRule) {
	verifyBySource := make(map[int]*rules.GeneratedRule)
	for _, r := range ruleList {
		if r.ActionType == rules.ActionVerify && len(r.SourceIDs) > 0 {
			if _, taken := verifyBySource[r.SourceIDs[0]]; !taken {
				verifyBySource[r.SourceIDs[0]] = r
			}
		}
	}

	for _, r := range ruleList {
		if r.ActionType != rules.ActionOCR {
			continue
		}
		if !rules.HasVerifyCounterpart(ocrDocumentClass(r.SourceType)) {
			continue
		}
		target := extractedValueField(r)
		if target < 0 {
			continue
		}
		verify, ok := verifyBySource[target]
		if !ok {
			continue
		}
		if !containsInt(r.PostTriggerRuleIDs, verify.ID) {
			r.PostTriggerRuleIDs = append(r.PostTriggerRuleIDs, verify.ID)
		}
	}
}

// extractedValueField returns the field id receiving the OCR'd text: the
// first populated destination slot.
func extractedValueField(r *rules.GeneratedRule) int {
	for _, id := range r.DestinationIDs {
		if id != rules.NoField {
			return id
		}
	}
	return -1
}

// ocrDocumentClass recovers the document class from an OCR rule's
// conventional source type.
func ocrDocumentClass(sourceType string) classify.DocumentClass {
	classes := []classify.DocumentClass{
		classify.DocPAN, classify.DocGSTIN, classify.DocBank,
		classify.DocMSME, classify.DocCIN, classify.DocAadhaar,
	}
	for _, class := range classes {
		if rules.OCRSourceType(class) == sourceType {
			return class
		}
	}
	return classify.DocUnknown
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

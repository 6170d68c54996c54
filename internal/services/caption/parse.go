package caption

import (
	"encoding/json"
	"strings"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// ParseResponse strips a surrounding ```json fence and decodes the record.
// Line breaks in any field become spaces. Lengths and counts are not
// re-validated.
func ParseResponse(text string) (*models.MetadataRecord, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rec models.MetadataRecord
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, &ProviderError{Op: "decode response", Err: err}
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	rec = rec.SingleLine()
	return &rec, nil
}

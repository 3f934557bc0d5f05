// Package discrepancy compares extracted fields against the user's form.
package discrepancy

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"idverify/internal/models"
)

// Fields is the comparison order. Gender is extracted but the form does
// not collect it, so it is never compared.
var Fields = []models.Field{
	models.FieldIDNumber,
	models.FieldFullName,
	models.FieldDateOfBirth,
	models.FieldAddress,
}

// Detect returns one Discrepancy per field that was extracted and differs
// from the reference value after trimming. Missing extractions never
// produce a discrepancy.
func Detect(result models.ExtractionResult, reference *models.ReferenceRecord) []models.Discrepancy {
	if reference == nil {
		reference = &models.ReferenceRecord{}
	}
	metric := metrics.NewJaroWinkler()

	var out []models.Discrepancy
	for _, f := range Fields {
		extracted, ok := result.Get(f)
		if !ok {
			continue
		}
		refValue, ok := reference.Get(f)
		if !ok {
			continue
		}
		extracted = strings.TrimSpace(extracted)
		refValue = strings.TrimSpace(refValue)
		if extracted == "" || extracted == refValue {
			continue
		}
		out = append(out, models.Discrepancy{
			Field:          f,
			ExtractedValue: extracted,
			ReferenceValue: refValue,
			Similarity:     strutil.Similarity(strings.ToLower(extracted), strings.ToLower(refValue), metric),
		})
	}
	return out
}

// Without drops discrepancies for fields in skip.
func Without(ds []models.Discrepancy, skip map[models.Field]bool) []models.Discrepancy {
	if len(skip) == 0 {
		return ds
	}
	out := ds[:0:0]
	for _, d := range ds {
		if !skip[d.Field] {
			out = append(out, d)
		}
	}
	return out
}

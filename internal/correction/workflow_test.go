package correction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverify/internal/discrepancy"
	"idverify/internal/models"
)

func TestWorkflow_SkipsFieldsWithoutDiscrepancy(t *testing.T) {
	rec := &models.ReferenceRecord{IDNumber: "111122223333", DateOfBirth: "01/01/1990", FullName: "Ravi"}
	ds := []models.Discrepancy{
		{Field: models.FieldDateOfBirth, ExtractedValue: "02/01/1990", ReferenceValue: "01/01/1990"},
		{Field: models.FieldIDNumber, ExtractedValue: "123456789012", ReferenceValue: "111122223333"},
	}
	w := New(rec, ds)
	assert.Equal(t, StateIdle, w.State())

	assert.Equal(t, StateAwaitingIDNumberConfirmation, w.Start())
	require.NoError(t, w.Accept())
	assert.Equal(t, StateAwaitingDOBConfirmation, w.State())
	require.NoError(t, w.Accept())
	assert.Equal(t, StateDone, w.State())

	assert.Equal(t, []State{
		StateAwaitingIDNumberConfirmation,
		StateAwaitingDOBConfirmation,
		StateDone,
	}, w.Visited())
}

func TestWorkflow_ConfirmAppliesValue(t *testing.T) {
	rec := &models.ReferenceRecord{FullName: "Ravi"}
	w := New(rec, []models.Discrepancy{{Field: models.FieldFullName, ExtractedValue: "RAVI KUMAR", ReferenceValue: "Ravi"}})
	w.Start()

	p, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, "RAVI KUMAR", p.Suggestion)
	assert.Equal(t, StateAwaitingNameConfirmation, p.State)

	require.NoError(t, w.Confirm(" Ravi Kumar "))
	assert.Equal(t, "Ravi Kumar", rec.FullName)
	assert.True(t, w.Resolved()[models.FieldFullName])
	assert.Equal(t, StateDone, w.State())
}

func TestWorkflow_AcceptRoundTrip(t *testing.T) {
	rec := &models.ReferenceRecord{IDNumber: "000000000000"}
	res := models.ExtractionResult{IDNumber: "123456789012"}

	w := New(rec, discrepancy.Detect(res, rec))
	w.Start()
	require.NoError(t, w.Accept())

	assert.Equal(t, "123456789012", rec.IDNumber)
	assert.Empty(t, discrepancy.Detect(res, rec))
}

func TestWorkflow_CancelLeavesRecord(t *testing.T) {
	rec := &models.ReferenceRecord{IDNumber: "000000000000", FullName: "Ravi"}
	w := New(rec, []models.Discrepancy{
		{Field: models.FieldFullName, ExtractedValue: "RAVI KUMAR"},
		{Field: models.FieldIDNumber, ExtractedValue: "123456789012"},
	})
	w.Start()

	require.NoError(t, w.Cancel())
	assert.Equal(t, "000000000000", rec.IDNumber)
	assert.Equal(t, StateAwaitingNameConfirmation, w.State())
	require.Len(t, w.Pending(), 1)

	require.NoError(t, w.Cancel())
	assert.Equal(t, StateDone, w.State())
	assert.Equal(t, "Ravi", rec.FullName)
	assert.Empty(t, w.Resolved())
	assert.Equal(t, map[models.Field]bool{models.FieldIDNumber: true, models.FieldFullName: true}, w.Dismissed())
}

func TestWorkflow_NoDiscrepancies(t *testing.T) {
	w := New(&models.ReferenceRecord{}, nil)
	assert.Equal(t, StateDone, w.Start())
	assert.ErrorIs(t, w.Accept(), ErrNoActivePrompt)
	assert.ErrorIs(t, w.Cancel(), ErrNoActivePrompt)
}

func TestWorkflow_UnpromptedFieldsIgnored(t *testing.T) {
	w := New(&models.ReferenceRecord{}, []models.Discrepancy{{Field: models.FieldAddress, ExtractedValue: "x"}})
	assert.Equal(t, StateDone, w.Start())
}

func TestWorkflow_BeforeStart(t *testing.T) {
	w := New(&models.ReferenceRecord{}, []models.Discrepancy{{Field: models.FieldIDNumber, ExtractedValue: "1"}})
	_, ok := w.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, w.Confirm("1"), ErrNoActivePrompt)
}

func TestWorkflow_EmptyConfirmation(t *testing.T) {
	rec := &models.ReferenceRecord{IDNumber: "1"}
	w := New(rec, []models.Discrepancy{{Field: models.FieldIDNumber, ExtractedValue: "2"}})
	w.Start()

	assert.ErrorIs(t, w.Confirm("   "), ErrEmptyValue)
	assert.Equal(t, StateAwaitingIDNumberConfirmation, w.State())
	assert.Equal(t, "1", rec.IDNumber)
}

func TestWorkflow_Discard(t *testing.T) {
	rec := &models.ReferenceRecord{IDNumber: "1", FullName: "a"}
	w := New(rec, []models.Discrepancy{
		{Field: models.FieldIDNumber, ExtractedValue: "2"},
		{Field: models.FieldFullName, ExtractedValue: "b"},
	})
	w.Start()
	w.Discard()

	assert.Equal(t, StateDone, w.State())
	assert.Empty(t, w.Pending())
	assert.ErrorIs(t, w.Accept(), ErrNoActivePrompt)
	assert.Equal(t, "1", rec.IDNumber)
	assert.Equal(t, "a", rec.FullName)
}

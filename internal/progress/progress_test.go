package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-engine/internal/models"
)

func drain(r *Reporter) []models.ParserProgress {
	var out []models.ParserProgress
	for p := range r.Updates() {
		out = append(out, p)
	}
	return out
}

func TestHappyPath(t *testing.T) {
	r := New("run-1", 16)
	require.NoError(t, r.Update(models.StatusReading, 0, "Reading"))
	require.NoError(t, r.Update(models.StatusParsing, 10, "Detecting bank"))
	require.NoError(t, r.Page(1, 2))
	require.NoError(t, r.Page(2, 2))
	require.NoError(t, r.Complete("Done"))

	got := drain(r)
	require.Len(t, got, 5)
	assert.Equal(t, models.StatusExtracting, got[2].Status)
	assert.Equal(t, 50, got[2].Progress)
	assert.Equal(t, 1, got[2].CurrentPage)
	assert.Equal(t, 2, got[2].TotalPages)
	assert.Equal(t, 80, got[3].Progress)
	assert.Equal(t, models.StatusComplete, got[4].Status)
	assert.Equal(t, 100, got[4].Progress)
	for _, p := range got {
		assert.Equal(t, "run-1", p.RunID)
	}
	assert.Zero(t, r.Dropped())
}

func TestProgressIsMonotonic(t *testing.T) {
	r := New("", 16)
	require.NoError(t, r.Update(models.StatusParsing, 40, ""))
	require.NoError(t, r.Update(models.StatusExtracting, 20, ""))
	assert.Equal(t, 40, r.Snapshot().Progress)

	require.NoError(t, r.Update(models.StatusSaving, 150, ""))
	assert.Equal(t, 100, r.Snapshot().Progress)
}

func TestRejectsBackwardsAndTerminalTransitions(t *testing.T) {
	r := New("", 16)
	require.NoError(t, r.Update(models.StatusExtracting, 20, ""))
	assert.Error(t, r.Update(models.StatusReading, 30, ""))
	assert.Error(t, r.Update("bogus", 30, ""))

	require.NoError(t, r.Complete(""))
	assert.Error(t, r.Update(models.StatusSaving, 100, ""))
	r.Fail("late failure")
	assert.Equal(t, models.StatusComplete, r.Snapshot().Status)
}

func TestSavingIsOptional(t *testing.T) {
	r := New("", 16)
	require.NoError(t, r.Update(models.StatusExtracting, 80, ""))
	require.NoError(t, r.Update(models.StatusSaving, 80, "Writing output"))
	require.NoError(t, r.Complete(""))

	r = New("", 16)
	require.NoError(t, r.Update(models.StatusExtracting, 80, ""))
	require.NoError(t, r.Complete(""))
}

func TestFailClosesChannel(t *testing.T) {
	r := New("", 16)
	require.NoError(t, r.Update(models.StatusReading, 0, ""))
	r.Fail("cancelled")
	r.Fail("again")

	got := drain(r)
	require.Len(t, got, 2)
	assert.Equal(t, models.StatusError, got[1].Status)
	assert.Equal(t, "cancelled", got[1].Message)
	assert.Equal(t, "cancelled", r.Snapshot().Message)
}

func TestFullBufferDropsOldest(t *testing.T) {
	r := New("", 2)
	for page := 1; page <= 5; page++ {
		require.NoError(t, r.Page(page, 5))
	}
	require.NoError(t, r.Complete(""))

	got := drain(r)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].CurrentPage)
	assert.Equal(t, models.StatusComplete, got[1].Status)
	assert.Equal(t, 4, r.Dropped())
}

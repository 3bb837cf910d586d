package shaper

import (
	"database/sql"
	"math"
	"testing"
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var small = Schema{
	Name: "test",
	Metrics: []Metric{
		num("CLV", "P1"),
		text("CLV_SEGMENT", "P2"),
		text("ILK_ODEME_TARIH", "P3"),
	},
}

func valid(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func input(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns(
		frame.NewString(KeyColumn, []string{"c1", "c2", "c3"}),
		frame.NewFloat("CLV", []float64{12.5, math.NaN(), 3}),
		frame.NewCategory("CLV_SEGMENT", []string{"VIP Müşteri", "Riskli Müşteri"}, []int32{0, 1, -1}),
		frame.NewTime("ILK_ODEME_TARIH", []time.Time{
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), {}, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		}),
		frame.NewFloat("IGNORED", []float64{1, 2, 3}),
	)
	require.NoError(t, err)
	return f
}

func TestMeltRendersEveryKind(t *testing.T) {
	records, err := Melt(input(t), small)
	require.NoError(t, err)
	require.Len(t, records, 9)

	assert.Equal(t, Record{CustomerID: "c1", Metric: "CLV", Value: valid("12.5")}, records[0])
	assert.Equal(t, Record{CustomerID: "c1", Metric: "ILK_ODEME_TARIH", Value: valid("20240131")}, records[2])
	assert.False(t, records[3].Value.Valid, "NaN melts to null")
	assert.False(t, records[7].Value.Valid, "null category melts to null")
}

func TestMeltMissingMetric(t *testing.T) {
	f := input(t)
	f.Drop("CLV_SEGMENT")
	_, err := Melt(f, small)
	assert.Error(t, err)
}

func TestPivotRoundTrip(t *testing.T) {
	records, err := Melt(input(t), small)
	require.NoError(t, err)

	wide, repeats, err := Pivot(records, small)
	require.NoError(t, err)
	assert.Zero(t, repeats)
	assert.Equal(t, []string{KeyColumn, "P1", "P2", "P3"}, wide.Names())
	assert.Equal(t, 3, wide.Len())

	p1, err := wide.Floats("P1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, p1[0])
	assert.True(t, math.IsNaN(p1[1]))

	back, err := Unpivot(wide, small)
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestPivotFillsMissingWithNull(t *testing.T) {
	wide, _, err := Pivot([]Record{
		{CustomerID: "a", Metric: "CLV", Value: valid("1")},
		{CustomerID: "b", Metric: "CLV_SEGMENT", Value: valid("VIP Müşteri")},
	}, small)
	require.NoError(t, err)

	p2, _ := wide.Column("P2")
	assert.True(t, p2.IsNull(0))
	assert.Equal(t, "VIP Müşteri", p2.Level(1))
	p1, _ := wide.Floats("P1")
	assert.True(t, math.IsNaN(p1[1]))
}

func TestPivotKeepsFirstValueOfRepeatedPair(t *testing.T) {
	wide, repeats, err := Pivot([]Record{
		{CustomerID: "a", Metric: "CLV", Value: sql.NullString{}},
		{CustomerID: "a", Metric: "CLV", Value: valid("2")},
		{CustomerID: "b", Metric: "CLV", Value: valid("5")},
		{CustomerID: "a", Metric: "CLV", Value: valid("9")},
		{CustomerID: "b", Metric: "CLV", Value: valid("7")},
	}, small)
	require.NoError(t, err)
	assert.Equal(t, 3, repeats)
	assert.Equal(t, 2, wide.Len())

	clv, err := wide.Floats("P1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, clv, "first non-null value wins, nothing is summed")
}

func TestPivotRejectsUndeclaredMetric(t *testing.T) {
	_, _, err := Pivot([]Record{{CustomerID: "a", Metric: "RND", Value: valid("1")}}, small)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
}

func TestPivotRejectsNonNumericValue(t *testing.T) {
	_, _, err := Pivot([]Record{{CustomerID: "a", Metric: "CLV", Value: valid("high")}}, small)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
}

func TestUnpivotRejectsUnexpectedColumn(t *testing.T) {
	wide, err := frame.FromColumns(
		frame.NewString(KeyColumn, []string{"a"}),
		frame.NewFloat("P1", []float64{1}),
		frame.NewFloat("P99", []float64{1}),
	)
	require.NoError(t, err)
	_, err = Unpivot(wide, small)
	assert.Error(t, err)
}

func TestShapeStampsAuditColumns(t *testing.T) {
	now := time.Date(2025, 5, 6, 14, 30, 0, 0, time.UTC)
	out, _, err := Shape(input(t), small, Audit{FirmID: 42, User: "ANALYTICS", Now: now})
	require.NoError(t, err)

	assert.Equal(t, []string{KeyColumn, "P1", "P2", "P3", "CREATE_DATE", "UPDATE_DATE", "FIRM_ID", "CREATED_BY", "UPDATED_BY"}, out.Names())
	created, _ := out.Column("CREATE_DATE")
	assert.Equal(t, time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC), created.Times[2])
	firm, _ := out.Floats("FIRM_ID")
	assert.Equal(t, 42.0, firm[0])
}

func TestSchemasUseDistinctCodes(t *testing.T) {
	seen := map[string]string{}
	for _, s := range []Schema{SegmentationSchema, ChurnSchema} {
		for _, m := range s.Metrics {
			prev, dup := seen[m.Code]
			assert.False(t, dup, "%s reused by %s and %s", m.Code, prev, m.Name)
			seen[m.Code] = m.Name
		}
	}
	assert.Len(t, seen, 26)
}

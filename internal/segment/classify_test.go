package segment

import (
	"math"
	"testing"
	"time"

	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func ymd(t time.Time) float64 {
	return float64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

type row struct {
	id          string
	last, first time.Time
	freq, money float64
	usage, disc float64
	revenue     float64
	count       float64
}

func batch(t *testing.T, rows []row) *frame.Frame {
	t.Helper()
	n := len(rows)
	ids := make([]string, n)
	cols := map[string][]float64{}
	for _, name := range []string{ColLastPurchase, ColFirstPayment, ColFrequency, ColMonetary, ColDiscountUsage, ColAvgDiscount, ColRevenue, ColTxnCount} {
		cols[name] = make([]float64, n)
	}
	for i, r := range rows {
		ids[i] = r.id
		cols[ColLastPurchase][i] = ymd(r.last)
		cols[ColFirstPayment][i] = ymd(r.first)
		cols[ColFrequency][i] = r.freq
		cols[ColMonetary][i] = r.money
		cols[ColDiscountUsage][i] = r.usage
		cols[ColAvgDiscount][i] = r.disc
		cols[ColRevenue][i] = r.revenue
		cols[ColTxnCount][i] = r.count
	}
	f, err := frame.FromColumns(
		frame.NewString(ColCustomerID, ids),
		frame.NewFloat(ColLastPurchase, cols[ColLastPurchase]),
		frame.NewFloat(ColFirstPayment, cols[ColFirstPayment]),
		frame.NewFloat(ColFrequency, cols[ColFrequency]),
		frame.NewFloat(ColMonetary, cols[ColMonetary]),
		frame.NewFloat(ColDiscountUsage, cols[ColDiscountUsage]),
		frame.NewFloat(ColAvgDiscount, cols[ColAvgDiscount]),
		frame.NewFloat(ColRevenue, cols[ColRevenue]),
		frame.NewFloat(ColTxnCount, cols[ColTxnCount]),
	)
	require.NoError(t, err)
	return f
}

func daysAgo(d int) time.Time { return today.AddDate(0, 0, -d) }

// mixed returns a varied batch of 40 customers.
func mixed() []row {
	rows := make([]row, 0, 40)
	for i := 0; i < 40; i++ {
		count := float64(1 + i%7)
		rows = append(rows, row{
			id:      string(rune('A'+i%26)) + string(rune('a'+i/26)),
			last:    daysAgo(5 + i*7),
			first:   daysAgo(40 + i*20),
			freq:    count,
			money:   float64(50 + i*13),
			usage:   float64(i%5) / 10,
			disc:    float64(i%4) / 20,
			revenue: float64(100 + i*37),
			count:   count,
		})
	}
	return rows
}

func labels(t *testing.T, f *frame.Frame, name string) []string {
	t.Helper()
	c, err := f.Column(name)
	require.NoError(t, err)
	require.Equal(t, frame.Category, c.Kind)
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.Level(i)
	}
	return out
}

func TestRecencyPrecedence(t *testing.T) {
	rows := mixed()
	rows[0].last, rows[0].first = daysAgo(10), daysAgo(400)   // active
	rows[1].last, rows[1].first = daysAgo(10), daysAgo(3)     // new contact beats active
	rows[2].last, rows[2].first = daysAgo(120), daysAgo(400)  // at risk
	rows[3].last, rows[3].first = daysAgo(200), daysAgo(400)  // passive
	rows[4].last, rows[4].first = daysAgo(90), daysAgo(91)    // boundary: active
	rows[5].last, rows[5].first = daysAgo(180), daysAgo(300)  // boundary: at risk
	rows[6].last, rows[6].first = daysAgo(200), daysAgo(30)   // new contact beats passive

	res, err := Classify(batch(t, rows), today)
	require.NoError(t, err)
	got := labels(t, res.Frame, ColRecencySegment)

	assert.Equal(t, RecencyActive, got[0])
	assert.Equal(t, RecencyNewContact, got[1])
	assert.Equal(t, RecencyAtRisk, got[2])
	assert.Equal(t, RecencyPassive, got[3])
	assert.Equal(t, RecencyActive, got[4])
	assert.Equal(t, RecencyAtRisk, got[5])
	assert.Equal(t, RecencyNewContact, got[6])

	for i, r := range rows {
		if !r.last.Before(daysAgo(90)) {
			if !r.first.Before(daysAgo(30)) {
				assert.Equal(t, RecencyNewContact, got[i], "row %d", i)
			} else {
				assert.Equal(t, RecencyActive, got[i], "row %d", i)
			}
		}
	}
}

func TestRecencyWindowsFollowCalendarDay(t *testing.T) {
	rows := mixed()
	rows[0].last, rows[0].first = daysAgo(90), daysAgo(400)
	rows[1].last, rows[1].first = daysAgo(180), daysAgo(400)
	rows[2].last, rows[2].first = daysAgo(200), daysAgo(30)
	f := batch(t, rows)

	want, err := Classify(f, today)
	require.NoError(t, err)
	for _, now := range []time.Time{
		today.Add(10 * time.Hour),
		time.Date(2025, 6, 30, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
		time.Date(2025, 6, 30, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
	} {
		got, err := Classify(f, now)
		require.NoError(t, err)
		assert.Equal(t, labels(t, want.Frame, ColRecencySegment), labels(t, got.Frame, ColRecencySegment), now.String())
	}
	got := labels(t, want.Frame, ColRecencySegment)
	assert.Equal(t, RecencyActive, got[0])
	assert.Equal(t, RecencyAtRisk, got[1])
	assert.Equal(t, RecencyNewContact, got[2])
}

func TestCLVSegmentIsTotal(t *testing.T) {
	res, err := Classify(batch(t, mixed()), today)
	require.NoError(t, err)
	got := labels(t, res.Frame, ColCLVSegment)

	seen := map[string]int{}
	for _, l := range got {
		require.Contains(t, CLVLabels, l)
		seen[l]++
	}
	assert.Len(t, got, 40)
	assert.Greater(t, seen[CLVOneTime], 0)
	assert.Greater(t, seen[CLVVIP], 0)
}

func TestCLVSegmentFollowsPriority(t *testing.T) {
	res, err := Classify(batch(t, mixed()), today)
	require.NoError(t, err)
	th := res.Thresholds
	got := labels(t, res.Frame, ColCLVSegment)
	count, _ := res.Frame.Floats(ColTxnCount)
	clv, _ := res.Frame.Floats(ColCLV)
	apv, _ := res.Frame.Floats(ColAvgPurchaseValue)
	span, _ := res.Frame.Floats(ColLifespan)

	for i := range got {
		var want string
		switch {
		case count[i] == 1:
			want = CLVOneTime
		case clv[i] > th.VIPCLV && apv[i] > th.VIPPurchase:
			want = CLVVIP
		case clv[i] > th.LoyalCLV && count[i] > th.LoyalTxnCount:
			want = CLVLoyal
		case clv[i] >= th.GrowthCLV && span[i] >= th.GrowthSpan:
			want = CLVPotential
		default:
			want = CLVAtRisk
		}
		assert.Equal(t, want, got[i], "row %d", i)
	}
}

func TestOneTimeCustomerBeatsVIP(t *testing.T) {
	rows := mixed()
	rows[0] = row{id: "whale", last: daysAgo(1), first: daysAgo(2000), freq: 1, money: 9000, revenue: 1e6, count: 1}

	res, err := Classify(batch(t, rows), today)
	require.NoError(t, err)

	clv, _ := res.Frame.Floats(ColCLV)
	apv, _ := res.Frame.Floats(ColAvgPurchaseValue)
	require.Greater(t, clv[0], res.Thresholds.VIPCLV)
	require.Greater(t, apv[0], res.Thresholds.VIPPurchase)
	assert.Equal(t, CLVOneTime, labels(t, res.Frame, ColCLVSegment)[0])
}

func TestCLVComputation(t *testing.T) {
	rows := mixed()
	rows[0] = row{id: "x", last: daysAgo(0), first: daysAgo(730), freq: 4, money: 10, revenue: 1000, count: 4}
	rows[1] = row{id: "y", last: daysAgo(3), first: daysAgo(3), freq: 2, money: 10, revenue: 730, count: 2}

	res, err := Classify(batch(t, rows), today)
	require.NoError(t, err)
	span, _ := res.Frame.Floats(ColLifespan)
	apv, _ := res.Frame.Floats(ColAvgPurchaseValue)
	clv, _ := res.Frame.Floats(ColCLV)

	assert.Equal(t, 730.0, span[0])
	assert.Equal(t, 250.0, apv[0])
	assert.Equal(t, 2000.0, clv[0])

	assert.Equal(t, 1.0, span[1], "lifespan floors at one day")
	assert.Equal(t, 2.0, clv[1])
}

func TestFrequencySegments(t *testing.T) {
	res, err := Classify(batch(t, mixed()), today)
	require.NoError(t, err)
	got := labels(t, res.Frame, ColFrequencySegment)
	freq, _ := res.Frame.Floats(ColFrequency)

	for i, l := range got {
		if freq[i] == 1 {
			assert.Equal(t, FrequencySingle, l)
		} else {
			assert.Contains(t, FrequencyBins, l)
		}
	}
	// raw values survive, only the working copy is scaled
	assert.Equal(t, mixed()[6].freq, freq[6])
	scaled, _ := res.Frame.Floats(ColFrequencyScaled)
	for _, v := range scaled {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestScaledMonetaryKeepsOrderUnderShift(t *testing.T) {
	rows := mixed()
	base, err := Classify(batch(t, rows), today)
	require.NoError(t, err)

	for i := range rows {
		rows[i].money += 1000
	}
	shifted, err := Classify(batch(t, rows), today)
	require.NoError(t, err)

	a := labels(t, base.Frame, ColMonetarySegment)
	b := labels(t, shifted.Frame, ColMonetarySegment)
	assert.Equal(t, len(a), len(b))
	for _, l := range a {
		assert.Contains(t, MonetaryLabels, l)
	}
	// sqrt is not shift-invariant, but rank order must survive
	order := func(f *frame.Frame) []float64 {
		v, _ := f.Floats(ColMonetaryScaled)
		return v
	}
	sa, sb := order(base.Frame), order(shifted.Frame)
	for i := 1; i < len(sa); i++ {
		assert.Equal(t, sa[i] > sa[i-1], sb[i] > sb[i-1])
	}
}

func TestDiscountMedianSplit(t *testing.T) {
	res, err := Classify(batch(t, mixed()), today)
	require.NoError(t, err)
	got := labels(t, res.Frame, ColDiscountSensitive)
	usage, _ := res.Frame.Floats(ColDiscountUsage)
	for i, u := range usage {
		if u > 0.2 {
			assert.Equal(t, DiscountSensitive, got[i])
		} else {
			assert.Equal(t, DiscountInsensitive, got[i])
		}
	}
}

func TestInvalidDatesAreDropped(t *testing.T) {
	f := batch(t, mixed())
	last, _ := f.Floats(ColLastPurchase)
	last[0] = math.NaN()
	last[1] = 20251399

	res, err := Classify(f, today)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 38, res.Frame.Len())
}

func TestEmptyBatchIsDataUnavailable(t *testing.T) {
	f := batch(t, mixed()[:1])
	last, _ := f.Floats(ColLastPurchase)
	last[0] = math.NaN()
	_, err := Classify(f, today)
	assert.Error(t, err)
}

func TestMissingColumnIsSchemaMismatch(t *testing.T) {
	f := batch(t, mixed())
	f.Drop(ColRevenue)
	_, err := Classify(f, today)
	assert.Error(t, err)
}

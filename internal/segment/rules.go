package segment

import "time"

// Customer is the per-row view the segment rules evaluate.
type Customer struct {
	LastPurchase     time.Time
	FirstPayment     time.Time
	TxnCount         float64
	Lifespan         float64
	AvgPurchaseValue float64
	CLV              float64
}

// Rule labels a customer when Match holds.
type Rule struct {
	Label string
	Match func(c Customer) bool
}

// LastMatch evaluates every rule in order and keeps the label of the last one
// that matched, falling back to def.
func LastMatch(rules []Rule, def string, c Customer) string {
	label := def
	for _, r := range rules {
		if r.Match(c) {
			label = r.Label
		}
	}
	return label
}

// FirstMatch returns the label of the first matching rule, or def.
func FirstMatch(rules []Rule, def string, c Customer) string {
	for _, r := range rules {
		if r.Match(c) {
			return r.Label
		}
	}
	return def
}

// RecencyRules are evaluated last-match-wins on top of RecencyPassive; the
// new-contact rule sits last so a fresh first payment overrides recency.
// Windows count whole days back from the calendar day of now, expressed as a
// UTC midnight like the parsed purchase dates.
func RecencyRules(now time.Time) []Rule {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d90 := day.AddDate(0, 0, -90)
	d180 := day.AddDate(0, 0, -180)
	d30 := day.AddDate(0, 0, -30)
	return []Rule{
		{Label: RecencyActive, Match: func(c Customer) bool {
			return !c.LastPurchase.Before(d90)
		}},
		{Label: RecencyAtRisk, Match: func(c Customer) bool {
			return !c.LastPurchase.Before(d180) && c.LastPurchase.Before(d90)
		}},
		{Label: RecencyNewContact, Match: func(c Customer) bool {
			return !c.FirstPayment.Before(d30)
		}},
	}
}

// CLVThresholds are the batch percentiles the CLV rules compare against.
type CLVThresholds struct {
	VIPCLV        float64 // p80 CLV
	VIPPurchase   float64 // p80 average purchase value
	LoyalCLV      float64 // p50 CLV
	LoyalTxnCount float64 // p50 transaction count
	GrowthCLV     float64 // p50 CLV
	GrowthSpan    float64 // p50 lifespan days
}

// CLVRules are evaluated first-match-wins; anything left is CLVAtRisk.
func CLVRules(th CLVThresholds) []Rule {
	return []Rule{
		{Label: CLVOneTime, Match: func(c Customer) bool {
			return c.TxnCount == 1
		}},
		{Label: CLVVIP, Match: func(c Customer) bool {
			return c.CLV > th.VIPCLV && c.AvgPurchaseValue > th.VIPPurchase
		}},
		{Label: CLVLoyal, Match: func(c Customer) bool {
			return c.CLV > th.LoyalCLV && c.TxnCount > th.LoyalTxnCount
		}},
		{Label: CLVPotential, Match: func(c Customer) bool {
			return c.CLV >= th.GrowthCLV && c.Lifespan >= th.GrowthSpan
		}},
	}
}

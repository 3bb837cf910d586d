package segment

// Input columns of the ANALYTIC_ALL_DATA snapshot.
const (
	ColCustomerID    = "UNIQUE_CUSTOMER_ID"
	ColLastPurchase  = "SON_ALV_TARIH"
	ColFirstPayment  = "ILK_ODEME_TARIH"
	ColLastPayment   = "SON_ODEME_TARIH"
	ColRecency       = "RECENCY"
	ColFrequency     = "FREQUENCY"
	ColMonetary      = "MONETARY"
	ColDiscountUsage = "IND_ALV_ORANI"
	ColAvgDiscount   = "ORT_INDIRIM_ORANI"
	ColRevenue       = "MUSTERI_TOPLAM_CIRO"
	ColTxnCount      = "ALISVERIS_ADEDI"
)

// Columns added by Classify.
const (
	ColRecencySegment    = "RECENCY_SEGMENT"
	ColMonetaryScaled    = "MONETARY_SCALED"
	ColFrequencyScaled   = "FREQUENCY_SCALED"
	ColMonetarySegment   = "MONETARY_SEGMENT"
	ColFrequencySegment  = "FREQUENCY_SEGMENT"
	ColDiscountSensitive = "INDIRIM_DUYARLI_SEGMENT"
	ColDiscountExpecting = "INDIRIM_BEKLENTISI_SEGMENT"
	ColLifespan          = "CUSTOMER_LIFESPAN"
	ColAvgPurchaseValue  = "AVG_PURCHASE_VALUE"
	ColCLV               = "CLV"
	ColCLVSegment        = "CLV_SEGMENT"
)

// Label values are read by the CRM front end as-is.
const (
	RecencyPassive    = "pasif müşteri"
	RecencyActive     = "aktif müşteri"
	RecencyAtRisk     = "aktif - riskli"
	RecencyNewContact = "markayla yeni temas eden"

	FrequencySingle = "tek alışveriş"

	DiscountInsensitive = "indirime_duyarsiz"
	DiscountSensitive   = "indirime_duyarli"

	DiscountStandard = "standart seviyede"
	DiscountHigh     = "yüksek seviyede"

	CLVOneTime   = "Tek Seferlik Müşteri"
	CLVVIP       = "VIP Müşteri"
	CLVLoyal     = "Sadık Müşteri"
	CLVPotential = "Potansiyel Büyüme Müşterisi"
	CLVAtRisk    = "Riskli Müşteri"
)

var (
	RecencyLabels   = []string{RecencyPassive, RecencyActive, RecencyAtRisk, RecencyNewContact}
	MonetaryLabels  = []string{"düşük", "mütevazi", "orta halli", "yüksek", "çok yüksek"}
	FrequencyBins   = []string{"seyrek", "orta", "sık"}
	FrequencyLabels = append([]string{FrequencySingle}, FrequencyBins...)
	CLVLabels       = []string{CLVOneTime, CLVVIP, CLVLoyal, CLVPotential, CLVAtRisk}
)

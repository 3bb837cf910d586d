// Package churn prepares churn features, trains the churn model and scores
// customers with it.
package churn

const (
	ColCustomerID = "UNIQUE_CUSTOMER_ID"
	ColProgram    = "DWH_PROGRAM_ID"
	ColRandom     = "RND"
	ColTarget     = "IS_CHURN"
	ColProb       = "CHURN_PROB"
	ColClass      = "CHURN_CLASS"
	ColModelID    = "MODEL_ID"
)

// Values written to IS_CHURN for scored customers.
const (
	LabelChurn   = "CHURN"
	LabelNoChurn = "CHURN RİSKİ YOK"
)

// ModelFeatures are the columns a training set keeps, target last.
var ModelFeatures = []string{
	"CUSTOMER_LIFETIME",
	"DISTINCT_TRANSACTIONS",
	"AVG_DAYS_BETWEEN_TRANSACTIONS",
	"AVG_SPENT",
	"MAX_SPENT",
	"MIN_SPENT",
	"MEDIAN_BASKET_SIZE",
	"BASKET_SIZE_STDDEV",
	"DISCOUNTED_TRANSACTIONS",
	"TOTAL_USED_POINT",
	"TOTAL_EARNED_POINT",
	ColProgram,
	ColTarget,
}

var CategoricalFeatures = []string{ColProgram}

// RoundColumns are zero-filled and rounded to whole numbers before training
// and scoring.
var RoundColumns = []string{
	"TOTAL_TRANSACTIONS",
	"TOTAL_SPENT",
	"AVG_SPENT",
	"MAX_SPENT",
	"MIN_SPENT",
	"DAYS_SINCE_LAST_TRANSACTION",
	"CUSTOMER_LIFETIME",
	"DISTINCT_TRANSACTIONS",
	"AVG_DAYS_BETWEEN_TRANSACTIONS",
	"MEDIAN_BASKET_SIZE",
	"BASKET_SIZE_STDDEV",
	"TOTAL_DISCOUNT_EARNED",
	"DISCOUNTED_TRANSACTIONS",
	"TOTAL_USED_POINT",
	"TOTAL_EARNED_POINT",
	"POINT_USED_TRANSACTIONS",
}

// CustomerInfoColumns travel with every scored customer into the output.
var CustomerInfoColumns = []string{
	ColCustomerID,
	ColProgram,
	"AVG_DAYS_BETWEEN_TRANSACTIONS",
	"DAYS_SINCE_LAST_TRANSACTION",
	"CUSTOMER_LIFETIME",
	"DISTINCT_TRANSACTIONS",
	"AVG_SPENT",
	"MAX_SPENT",
	"TOTAL_USED_POINT",
}

// identityColumns are never touched by outlier suppression.
var identityColumns = []string{ColCustomerID, ColProgram, ColRandom}

// inputFeatures is ModelFeatures without the target.
func inputFeatures() []string {
	return ModelFeatures[:len(ModelFeatures)-1]
}

func isCategorical(name string) bool {
	for _, c := range CategoricalFeatures {
		if c == name {
			return true
		}
	}
	return false
}

package nlu

// FinancialVocabulary is scanned, in order, for keyword extraction.
var FinancialVocabulary = []string{
	"money", "budget", "savings", "expenses", "income", "debt",
	"investment", "tax", "retirement", "emergency fund", "credit",
	"loan", "mortgage", "insurance", "spending", "cost", "price",
}

var (
	positiveWords = []string{"good", "great", "excellent", "improve", "better", "saving", "profit"}
	negativeWords = []string{"bad", "worse", "debt", "loss", "expensive", "struggle", "problem"}
)

type categoryRule struct {
	label    string
	score    float64
	triggers []string
}

var categoryRules = []categoryRule{
	{"Budget Management", 0.9, []string{"budget", "expenses", "spending"}},
	{"Savings & Investment", 0.8, []string{"savings", "investment", "retirement"}},
	{"Debt Management", 0.7, []string{"debt", "loan", "credit"}},
}

const (
	MaxKeywords         = 5
	MaxEntities         = 5
	vocabularyRelevance = 0.8
)

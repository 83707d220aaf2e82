package report

// MaxPerQuestion is the fixed per-question ceiling. Answer scales are
// assumed 0-4 regardless of what the questionnaire actually presented.
const MaxPerQuestion = 4

// worstSentinel initialises worst-question tracking; any real score
// (0-4) replaces it on the first strict comparison.
const worstSentinel = 999

// Answer is one raw answer row. Value carries the first populated of the
// source's primary and fallback score fields, still untyped; ParseScore
// turns it into a usable number.
type Answer struct {
	QuestionID string
	Value      any
}

// Question is one catalog row with the source fallback chains already
// applied, except that CategoryKey stays empty when the source carried
// no usable (string) category key. Aggregate maps that to "misc".
type Question struct {
	ID          string
	Text        string
	CategoryKey string
}

// Category maps a category key to its display name.
type Category struct {
	Key  string
	Name string
}

type Overall struct {
	Score float64 `json:"score"`
	Max   int     `json:"max"`
}

type Distribution struct {
	Red   int `json:"red"`
	Amber int `json:"amber"`
	Green int `json:"green"`
}

type CategoryScore struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Avg      float64 `json:"avg"`
	Max      int     `json:"max"`
	TopIssue string  `json:"top_issue"`
}

type QuestionResult struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Cat     string  `json:"cat"`
	CatName string  `json:"cat_name"`
	Score   float64 `json:"score"`
}

type Saving struct {
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Value int64   `json:"value"`
	Gap   float64 `json:"gap"`
}

// Summary is the report payload consumed by the JSON responder, the
// narrative generator and the email dispatcher.
type Summary struct {
	Company      string           `json:"company"`
	AssessedAt   string           `json:"assessed_at"`
	Overall      Overall          `json:"overall"`
	Distribution Distribution     `json:"distribution"`
	Categories   []CategoryScore  `json:"categories"`
	Questions    []QuestionResult `json:"questions"`
	Savings      []Saving         `json:"savings"`
}

// Input carries everything Aggregate needs. Company and AssessedAt are
// resolved by the caller from the assessment meta row and pass through
// to the Summary untouched.
type Input struct {
	Company        string
	AssessedAt     string
	Answers        []Answer
	Questions      []Question
	Categories     []Category
	AnnualCostBase float64
}

package report

import "math"

// savingsWeights drives the savings projection per category key. The
// values are fixed business assumptions, not derived from answer data;
// keys missing from the table use defaultSavingsWeight.
var savingsWeights = map[string]float64{
	"quality":    0.25,
	"production": 0.20,
	"ie":         0.15,
	"planning":   0.15,
	"hr":         0.10,
	"compliance": 0.05,
	"costing":    0.10,
	"misc":       0.00,
}

const defaultSavingsWeight = 0.05

type categoryAccumulator struct {
	key        string
	name       string
	sum        float64
	count      int
	worstScore float64
	worstText  string
}

// Aggregate turns raw answers plus the question and category catalogs
// into a Summary. It is a pure function: no I/O, no failure modes, all
// missing or malformed data falls back to defaults.
//
// Answers whose question id is not present in the question catalog are
// dropped entirely; they contribute to neither the overall score, the
// distribution, nor any category.
func Aggregate(in Input) Summary {
	questionByID := make(map[string]Question, len(in.Questions))
	for _, q := range in.Questions {
		if q.Text == "" {
			q.Text = "Question"
		}
		questionByID[q.ID] = q
	}

	categoryNames := make(map[string]string, len(in.Categories))
	for _, c := range in.Categories {
		name := c.Name
		if name == "" {
			name = c.Key
		}
		categoryNames[c.Key] = name
	}

	var dist Distribution
	var total float64
	accumulators := map[string]*categoryAccumulator{}
	// first-seen answer order, so category output is stable across runs
	var order []string
	questions := make([]QuestionResult, 0, len(in.Answers))

	for _, a := range in.Answers {
		q, ok := questionByID[a.QuestionID]
		if !ok {
			continue
		}

		key := q.CategoryKey
		if key == "" {
			key = "misc"
		}
		name := categoryNames[key]
		if name == "" {
			if q.CategoryKey != "" {
				name = q.CategoryKey
			} else {
				name = "Misc"
			}
		}

		score := ParseScore(a.Value)
		switch {
		case score <= 1:
			dist.Red++
		case score == 2:
			dist.Amber++
		default:
			dist.Green++
		}
		total += score

		acc := accumulators[key]
		if acc == nil {
			acc = &categoryAccumulator{key: key, name: name, worstScore: worstSentinel}
			accumulators[key] = acc
			order = append(order, key)
		}
		acc.sum += score
		acc.count++
		// strict less-than: on ties the first minimum seen wins
		if score < acc.worstScore {
			acc.worstScore = score
			acc.worstText = q.Text
		}

		questions = append(questions, QuestionResult{
			ID:      q.ID,
			Text:    q.Text,
			Cat:     key,
			CatName: name,
			Score:   score,
		})
	}

	categories := make([]CategoryScore, 0, len(order))
	savings := make([]Saving, 0, len(order))
	for _, key := range order {
		acc := accumulators[key]
		avg := 0.0
		if acc.count > 0 {
			avg = acc.sum / float64(acc.count)
		}
		categories = append(categories, CategoryScore{
			Key:      acc.key,
			Name:     acc.name,
			Avg:      avg,
			Max:      MaxPerQuestion,
			TopIssue: acc.worstText,
		})

		gap := math.Max(0, MaxPerQuestion-avg) / MaxPerQuestion
		weight, ok := savingsWeights[key]
		if !ok {
			weight = defaultSavingsWeight
		}
		savings = append(savings, Saving{
			Key:   acc.key,
			Name:  acc.name,
			Value: int64(math.Round(in.AnnualCostBase * gap * weight)),
			Gap:   gap,
		})
	}

	return Summary{
		Company:      in.Company,
		AssessedAt:   in.AssessedAt,
		Overall:      Overall{Score: total, Max: len(questions) * MaxPerQuestion},
		Distribution: dist,
		Categories:   categories,
		Questions:    questions,
		Savings:      savings,
	}
}

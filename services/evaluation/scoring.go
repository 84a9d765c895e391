package evaluation

import "math"

var categoryDescriptions = map[Category]string{
	CategoryTechnical:       "Technical skills and ability to execute: depth of engineering, design or domain expertise shown in the application.",
	CategoryProject:         "Quality of the proposed project: clarity of the problem, feasibility and progress to date.",
	CategoryCommunityFit:    "Fit with the community: collaboration, willingness to help others and alignment with the program's values.",
	CategoryVideo:           "Video pitch: communication, clarity and conviction on camera.",
	CategoryEntrepreneurial: "Entrepreneurial drive: initiative, resilience and evidence of building things end to end.",
	CategoryOverall:         "Overall impression of the applicant across all dimensions.",
}

const defaultCategoryDescription = "General evaluation criterion."

// CategoryDescription annotates a category for downstream consumers such as
// an AI reviewer prompt.
func CategoryDescription(c Category) string {
	if d, ok := categoryDescriptions[c]; ok {
		return d
	}
	return defaultCategoryDescription
}

// Normalize maps score from [min,max] into [0,1]. A degenerate range yields 0.
func Normalize(score, min, max float64) float64 {
	if max <= min {
		return 0
	}
	n := (score - min) / (max - min)
	return math.Max(0, math.Min(1, n))
}

// WeightedScore is the weight-normalized mean of normalized criterion scores,
// scaled to 0..100. ok is false when no score carries positive weight.
func WeightedScore(scores []CriterionScore, criteria map[string]Criterion) (value float64, ok bool) {
	var sum, weights float64
	for _, s := range scores {
		c, found := criteria[s.CriterionID]
		if !found || c.Weight <= 0 {
			continue
		}
		sum += Normalize(s.Score, c.MinScore, c.MaxScore) * c.Weight
		weights += c.Weight
	}
	if weights == 0 {
		return 0, false
	}
	return round2(sum / weights * 100), true
}

type CategoryStat struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
	Normalized   float64 `json:"normalized"`
	TotalWeight  float64 `json:"totalWeight"`
}

// CategoryBreakdown always carries every known category.
type CategoryBreakdown map[Category]CategoryStat

// Breakdown aggregates raw and normalized scores per category. Scores whose
// criterion is unknown are skipped.
func Breakdown(scores []CriterionScore, criteria map[string]Criterion) CategoryBreakdown {
	type acc struct {
		n              int
		raw, norm, wts float64
	}
	var sums [len(Categories)]acc

	for _, s := range scores {
		c, ok := criteria[s.CriterionID]
		if !ok {
			continue
		}
		i, ok := categoryIndex[c.Category]
		if !ok {
			continue
		}
		sums[i].n++
		sums[i].raw += s.Score
		sums[i].norm += Normalize(s.Score, c.MinScore, c.MaxScore)
		sums[i].wts += c.Weight
	}

	out := make(CategoryBreakdown, len(Categories))
	for _, cat := range Categories {
		a := sums[categoryIndex[cat]]
		stat := CategoryStat{Count: a.n, TotalWeight: a.wts}
		if a.n > 0 {
			stat.AverageScore = round2(a.raw / float64(a.n))
			stat.Normalized = round2(a.norm / float64(a.n))
		}
		out[cat] = stat
	}
	return out
}

var categoryIndex = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// Summary is the consensus view over several evaluations of one application.
type Summary struct {
	Count                int                    `json:"count"`
	AIEvaluations        int                    `json:"aiEvaluations"`
	HumanEvaluations     int                    `json:"humanEvaluations"`
	AverageDeclaredScore float64                `json:"averageDeclaredScore"`
	AverageComputedScore *float64               `json:"averageComputedScore,omitempty"`
	AverageConfidence    float64                `json:"averageConfidence"`
	Recommendations      map[Recommendation]int `json:"recommendations"`
	Consensus            Recommendation         `json:"consensus,omitempty"`
	Categories           CategoryBreakdown      `json:"categories"`
}

// Rollup summarizes evaluations. isAI classifies the reviewer; ties between
// recommendations resolve to needs_more_info.
func Rollup(evals []Evaluation, criteria map[string]Criterion, isAI func(Evaluation) bool) Summary {
	out := Summary{
		Recommendations: make(map[Recommendation]int),
		Categories:      Breakdown(nil, criteria),
	}
	if len(evals) == 0 {
		return out
	}

	var declared, computed, confidence float64
	var computedN int
	var scores []CriterionScore
	for _, e := range evals {
		out.Count++
		if isAI != nil && isAI(e) {
			out.AIEvaluations++
		} else {
			out.HumanEvaluations++
		}
		declared += e.OverallScore
		confidence += float64(e.Confidence)
		if e.ComputedScore != nil {
			computed += *e.ComputedScore
			computedN++
		}
		if e.Recommendation.Valid() {
			out.Recommendations[e.Recommendation]++
		}
		scores = append(scores, e.Scores...)
	}

	out.AverageDeclaredScore = round2(declared / float64(out.Count))
	out.AverageConfidence = round2(confidence / float64(out.Count))
	if computedN > 0 {
		avg := round2(computed / float64(computedN))
		out.AverageComputedScore = &avg
	}
	out.Consensus = consensus(out.Recommendations)
	out.Categories = Breakdown(scores, criteria)
	return out
}

func consensus(counts map[Recommendation]int) Recommendation {
	var best Recommendation
	max, tie := 0, false
	for _, r := range []Recommendation{RecommendAccept, RecommendReject, RecommendWaitlist, RecommendNeedsMoreInfo} {
		switch n := counts[r]; {
		case n > max:
			best, max, tie = r, n, false
		case n == max && n > 0:
			tie = true
		}
	}
	if tie {
		return RecommendNeedsMoreInfo
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

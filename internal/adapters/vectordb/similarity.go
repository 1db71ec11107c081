package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// relevance maps a cosine similarity into [0,1]. Opposed vectors are irrelevant.
func relevance(sim float64) float64 {
	switch {
	case math.IsNaN(sim), sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}

// rank sorts hits by descending score, breaking ties by id, and keeps topK.
func rank(hits []entities.ScoredPassage, topK int) []entities.ScoredPassage {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Passage.ID < hits[j].Passage.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

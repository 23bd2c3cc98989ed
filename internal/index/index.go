package index

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

type Options struct {
	QuestionBoost float64
	AnswerBoost   float64
}

func DefaultOptions() Options {
	return Options{QuestionBoost: 1, AnswerBoost: 1}
}

// Index is an in-memory TF-IDF keyword index over the question and answer
// fields of the corpus. It is immutable after New and safe for concurrent use.
type Index struct {
	entries []models.FAQEntry
	fields  []fieldIndex
}

type fieldIndex struct {
	boost   float64
	idf     map[string]float64
	vectors []map[string]float64
}

func New(entries []models.FAQEntry, opts Options) *Index {
	if opts.QuestionBoost <= 0 && opts.AnswerBoost <= 0 {
		opts = DefaultOptions()
	}

	docs := make([]models.FAQEntry, len(entries))
	copy(docs, entries)

	questions := make([]string, len(docs))
	answers := make([]string, len(docs))
	for i, e := range docs {
		questions[i] = e.Question
		answers[i] = e.Answer
	}

	idx := &Index{
		entries: docs,
		fields: []fieldIndex{
			buildField(questions, opts.QuestionBoost),
			buildField(answers, opts.AnswerBoost),
		},
	}

	logger.Info("Document index built",
		zap.Int("entries", len(docs)),
		zap.Int("question_terms", len(idx.fields[0].idf)),
		zap.Int("answer_terms", len(idx.fields[1].idf)),
	)

	return idx
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

// Retrieve returns at most k entries ordered by descending score. Entries
// that share no term with the query are never returned.
func (idx *Index) Retrieve(query string, k int) []models.FAQEntry {
	if k <= 0 || len(idx.entries) == 0 {
		return []models.FAQEntry{}
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []models.FAQEntry{}
	}

	scores := make([]float64, len(idx.entries))
	for _, f := range idx.fields {
		if f.boost == 0 {
			continue
		}
		qv := f.vectorize(terms)
		if len(qv) == 0 {
			continue
		}
		for i, dv := range f.vectors {
			scores[i] += f.boost * dot(qv, dv)
		}
	}

	hits := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, i)
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return scores[hits[a]] > scores[hits[b]]
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]models.FAQEntry, len(hits))
	for i, h := range hits {
		results[i] = idx.entries[h]
	}
	return results
}

func buildField(texts []string, boost float64) fieldIndex {
	tokens := make([][]string, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		tokens[i] = tokenize(text)
		seen := make(map[string]struct{}, len(tokens[i]))
		for _, t := range tokens[i] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	// Smoothed idf: ln((1+n)/(1+df)) + 1.
	n := float64(len(texts))
	f := fieldIndex{
		boost:   boost,
		idf:     make(map[string]float64, len(df)),
		vectors: make([]map[string]float64, len(texts)),
	}
	for term, count := range df {
		f.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}
	for i := range tokens {
		f.vectors[i] = f.vectorize(tokens[i])
	}
	return f
}

// vectorize returns the L2-normalised tf-idf vector of terms, ignoring terms
// outside the field vocabulary.
func (f fieldIndex) vectorize(terms []string) map[string]float64 {
	vec := make(map[string]float64)
	for _, t := range terms {
		if idf, ok := f.idf[t]; ok {
			vec[t] += idf
		}
	}

	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for t := range vec {
		vec[t] /= norm
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for t, w := range a {
		sum += w * b[t]
	}
	return sum
}

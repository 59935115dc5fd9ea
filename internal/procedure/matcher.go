package procedure

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
)

// Match is a catalog hit with how confident the matcher is about it, in
// [0, 1]. Substring containment scores 1.
type Match struct {
	Procedure  Procedure
	Confidence float64
}

type Matcher struct {
	catalog   Catalog
	threshold float64
	logger    zerolog.Logger
}

func NewMatcher(catalog Catalog, threshold float64, logger zerolog.Logger) *Matcher {
	return &Matcher{
		catalog:   catalog,
		threshold: threshold,
		logger:    logger,
	}
}

// Match finds the catalog procedure best matching the referral text: an
// exact substring pass first, then a ranked token-similarity search. Returns
// ErrNoMatch when nothing clears the confidence threshold.
func (m *Matcher) Match(ctx context.Context, text string) (*Match, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, ErrNoMatch
	}

	procedures, err := m.catalog.ListProcedures(ctx)
	if err != nil {
		return nil, fmt.Errorf("load procedure catalog: %w", err)
	}

	candidates := usable(procedures)

	// Substring containment beats any fuzzy score.
	for _, p := range candidates {
		name := Normalize(p.Name)
		if strings.Contains(normalized, name) || strings.Contains(name, normalized) {
			m.logger.Debug().Str("procedure", p.Name).Msg("substring match")
			return &Match{Procedure: p, Confidence: 1}, nil
		}
	}

	words := keywords(normalized)
	if len(words) == 0 {
		return nil, ErrNoMatch
	}

	var best *Match
	for _, p := range candidates {
		score := similarity(words, Normalize(p.Name))
		if score < m.threshold {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Match{Procedure: p, Confidence: score}
		}
	}

	if best == nil {
		return nil, ErrNoMatch
	}

	m.logger.Debug().
		Str("procedure", best.Procedure.Name).
		Float64("confidence", best.Confidence).
		Msg("fuzzy match")
	return best, nil
}

// usable drops placeholder catalog rows (empty names, "---" and the like).
func usable(procedures []Procedure) []Procedure {
	result := make([]Procedure, 0, len(procedures))
	for _, p := range procedures {
		name := strings.TrimSpace(p.Name)
		if len(name) <= 2 || name == "---" {
			continue
		}
		result = append(result, p)
	}
	return result
}

// keywords keeps the words long enough to carry meaning.
func keywords(normalized string) []string {
	var result []string
	for _, w := range strings.Fields(normalized) {
		if len(w) > 3 {
			result = append(result, w)
		}
	}
	return result
}

// similarity scores a procedure name against the referral keywords: each
// name token takes its best edit-distance similarity to any keyword, and the
// name's score is the average over its tokens.
func similarity(words []string, name string) float64 {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return 0
	}

	var sum float64
	for _, tok := range tokens {
		best := 0.0
		for _, w := range words {
			if s := tokenSimilarity(tok, w); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(len(tokens))
}

func tokenSimilarity(a, b string) float64 {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

package graph

import (
	"context"
	"regexp"
	"strings"

	"github.com/quorra0/sage/internal/corpus"
)

// Extractor produces entities and relations from one chunk. Extraction runs
// at chunk granularity so provenance points at the exact retrievable unit.
type Extractor interface {
	Extract(ctx context.Context, chunk corpus.Chunk) (Extraction, error)
}

// maxEntitiesPerChunk caps extraction so a pathological chunk cannot flood
// the graph.
const maxEntitiesPerChunk = 100

var (
	// Consecutive capitalized words: candidate proper nouns.
	properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

	// Names ending with a common organization suffix.
	orgPattern = regexp.MustCompile(`(?i)\b\w+(?:\s+\w+)*\s+(?:Inc|Corp|LLC|Ltd|Company|Organization|Institute|University|College)\b`)

	// Numeric and written-month dates.
	datePattern = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)

	yearPattern = regexp.MustCompile(`\d{4}`)
)

// relationPatterns pair a verb-phrase pattern with its relation label. Both
// captured sides must already be extracted entities for a relation to hold.
var relationPatterns = []struct {
	pattern  *regexp.Regexp
	relation string
}{
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(?:is|was|are|were)\s+(?:a|an|the)?\s*(\w+(?:\s+\w+)*)`), RelationIsA},
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(?:works for|employed by|part of)\s+(\w+(?:\s+\w+)*)`), RelationWorksFor},
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(?:located in|based in|from)\s+(\w+(?:\s+\w+)*)`), RelationLocatedIn},
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(?:created|founded|established)\s+(\w+(?:\s+\w+)*)`), RelationCreated},
	{regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*)\s+(?:and|with|alongside)\s+(\w+(?:\s+\w+)*)`), RelationAssociatedWith},
}

// RegexExtractor extracts entities and relations with pattern heuristics.
// Cheap and offline; the model-backed extractor gives better recall when a
// generation provider is available.
type RegexExtractor struct{}

// NewRegexExtractor creates the heuristic extractor.
func NewRegexExtractor() *RegexExtractor { return &RegexExtractor{} }

func (x *RegexExtractor) Extract(_ context.Context, chunk corpus.Chunk) (Extraction, error) {
	ex := Extraction{ChunkID: chunk.ID}
	if chunk.Text == "" {
		return ex, nil
	}

	names := extractEntityNames(chunk.Text)
	for _, name := range names {
		ex.Entities = append(ex.Entities, Entity{Name: name, Type: Classify(name)})
	}

	entitySet := make(map[string]bool, len(names))
	for _, name := range names {
		entitySet[Normalize(name)] = true
	}

	for _, rp := range relationPatterns {
		for _, m := range rp.pattern.FindAllStringSubmatch(chunk.Text, -1) {
			if len(m) != 3 {
				continue
			}
			source, target := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
			if source == "" || target == "" {
				continue
			}
			if !entitySet[Normalize(source)] || !entitySet[Normalize(target)] {
				continue
			}
			if Normalize(source) == Normalize(target) {
				continue
			}
			ex.Relations = append(ex.Relations, Relation{
				Source:   source,
				Relation: rp.relation,
				Target:   target,
			})
		}
	}
	return ex, nil
}

// extractEntityNames runs the entity patterns over text and deduplicates by
// normalized key, keeping first-seen surface forms in order of appearance.
func extractEntityNames(text string) []string {
	var candidates []string
	candidates = append(candidates, properNounPattern.FindAllString(text, -1)...)
	candidates = append(candidates, orgPattern.FindAllString(text, -1)...)
	candidates = append(candidates, datePattern.FindAllString(text, -1)...)

	seen := make(map[string]bool, len(candidates))
	var names []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if len(c) <= 2 {
			continue
		}
		key := Normalize(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, c)
		if len(names) == maxEntitiesPerChunk {
			break
		}
	}
	return names
}

// Classify assigns an entity type from surface features.
func Classify(name string) string {
	lower := strings.ToLower(name)

	if yearPattern.MatchString(name) || containsAnyWord(lower,
		"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec") {
		return TypeDate
	}
	if containsAnyWord(lower, "inc", "corp", "llc", "ltd", "company", "organization") {
		return TypeOrganization
	}
	if containsAnyWord(lower, "university", "college", "school", "institute") {
		return TypeInstitution
	}

	words := strings.Fields(name)
	if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' && len(words) >= 2 && len(words) <= 3 {
		return TypePerson
	}
	return TypeConcept
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

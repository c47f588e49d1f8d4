package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quorra0/sage/internal/corpus"
	"github.com/quorra0/sage/internal/provider"
)

// extractionPrompt asks the model for a strict line format so parsing stays
// trivial and malformed lines can be skipped instead of failing the document.
const extractionPrompt = `Extract entities and their relations from the text below.

Output format, one item per line, nothing else:
  entity: <name> | <type>
  relation: <source> | <relation> | <target>

Valid types: person, organization, institution, date, concept.
Valid relations: is_a, works_for, located_in, created, associated_with.

Text:
%s`

// ModelExtractor extracts entities and relations with the generation model.
// Malformed output lines are skipped, never fatal; a chunk that yields no
// parseable lines produces an empty extraction.
type ModelExtractor struct {
	generator provider.Generator
	logger    *slog.Logger
}

// NewModelExtractor creates a model-backed extractor.
func NewModelExtractor(generator provider.Generator, logger *slog.Logger) *ModelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelExtractor{generator: generator, logger: logger}
}

func (x *ModelExtractor) Extract(ctx context.Context, chunk corpus.Chunk) (Extraction, error) {
	ex := Extraction{ChunkID: chunk.ID}
	if chunk.Text == "" {
		return ex, nil
	}

	out, err := x.generator.Generate(ctx, provider.GenerateRequest{
		Prompt: fmt.Sprintf(extractionPrompt, chunk.Text),
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("model extraction for chunk %q: %w", chunk.ID, err)
	}

	skipped := 0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "entity:"):
			if e, ok := parseEntityLine(strings.TrimPrefix(line, "entity:")); ok {
				ex.Entities = append(ex.Entities, e)
			} else {
				skipped++
			}
		case strings.HasPrefix(line, "relation:"):
			if r, ok := parseRelationLine(strings.TrimPrefix(line, "relation:")); ok {
				ex.Relations = append(ex.Relations, r)
			} else {
				skipped++
			}
		default:
			skipped++
		}
	}
	if skipped > 0 {
		x.logger.Debug("skipped malformed extraction lines",
			"chunk_id", chunk.ID, "skipped", skipped)
	}
	return ex, nil
}

func parseEntityLine(rest string) (Entity, bool) {
	parts := strings.Split(rest, "|")
	if len(parts) != 2 {
		return Entity{}, false
	}
	name := strings.TrimSpace(parts[0])
	typ := strings.ToLower(strings.TrimSpace(parts[1]))
	if name == "" || !validType(typ) {
		return Entity{}, false
	}
	return Entity{Name: name, Type: typ}, true
}

func parseRelationLine(rest string) (Relation, bool) {
	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return Relation{}, false
	}
	source := strings.TrimSpace(parts[0])
	relation := strings.ToLower(strings.TrimSpace(parts[1]))
	target := strings.TrimSpace(parts[2])
	if source == "" || target == "" || !validRelation(relation) {
		return Relation{}, false
	}
	return Relation{Source: source, Relation: relation, Target: target}, true
}

func validType(t string) bool {
	switch t {
	case TypeDate, TypeOrganization, TypeInstitution, TypePerson, TypeConcept:
		return true
	}
	return false
}

func validRelation(r string) bool {
	switch r {
	case RelationIsA, RelationWorksFor, RelationLocatedIn, RelationCreated, RelationAssociatedWith:
		return true
	}
	return false
}

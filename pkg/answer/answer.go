package answer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xhad/paperqa/internal/models"
	"github.com/xhad/paperqa/internal/types"
)

// RefusalAnswer is returned verbatim whenever the retrieved evidence does
// not clear the similarity bar.
const RefusalAnswer = "Insufficient information in the document."

const snippetMaxLen = 200

const systemPrompt = `You are a research paper question-answering assistant. Your task is to provide accurate, factual answers based STRICTLY on the provided context from academic papers.

CRITICAL RULES:
1. ONLY use information from the provided sources
2. If the answer is not in the context, say "The provided context does not contain sufficient information to answer this question."
3. Include inline citations using [Source N] notation where N is the source number
4. Be precise and quote relevant passages when appropriate
5. Do not add information from your training data
6. Maintain academic tone and clarity
7. If multiple sources support a point, cite all relevant sources`

type EngineConfig struct {
	SimilarityThreshold float32
}

// Engine filters retrieved candidates by similarity score, decides
// whether the evidence justifies an answer at all, and produces
// deduplicated, ordered citations alongside the synthesized answer.
type Engine struct {
	config    EngineConfig
	generator types.Generator
}

func NewWithConfig(config EngineConfig, generator types.Generator) *Engine {
	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = 0.75
	}

	return &Engine{
		config:    config,
		generator: generator,
	}
}

// Answer synthesizes an answer grounded in the retrieved chunks. When no
// chunk clears the similarity threshold it returns the fixed refusal
// answer without invoking the generative model at all.
func (e *Engine) Answer(ctx context.Context, question string, retrieved []models.RetrievalResult) (*models.Answer, error) {
	relevant := make([]models.RetrievalResult, 0, len(retrieved))
	for _, r := range retrieved {
		if r.Score >= e.config.SimilarityThreshold {
			relevant = append(relevant, r)
		}
	}

	if len(relevant) == 0 {
		return &models.Answer{
			Text:      RefusalAnswer,
			Citations: []models.Citation{},
		}, nil
	}

	text, err := e.generator.Generate(ctx, systemPrompt, userPrompt(question, formatContext(relevant)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &models.Answer{
		Text:      text,
		Citations: extractCitations(relevant),
	}, nil
}

// formatContext assembles the kept chunks into a numbered, attributable
// block so the model can be instructed to cite by source index.
func formatContext(chunks []models.RetrievalResult) string {
	var parts []string
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf(
			"[Source %d] (Section: %s, Page: %d)\n%s\n",
			i+1, chunk.Section, chunk.Page, chunk.Text))
	}
	return strings.Join(parts, "\n")
}

func userPrompt(question, context string) string {
	return fmt.Sprintf(`Context from the research paper:

%s

Question: %s

Please provide a detailed answer based on the context above. Include inline citations [Source N] for all claims.`, context, question)
}

// extractCitations derives one citation per distinct (section, page) pair
// in the grounding context. The first occurrence wins the snippet. The
// final list is sorted by (page, section): citations are a bibliographic
// index, not a relevance ranking.
func extractCitations(chunks []models.RetrievalResult) []models.Citation {
	citations := []models.Citation{}
	seen := make(map[string]bool)

	for _, chunk := range chunks {
		key := fmt.Sprintf("%s\x00%d", chunk.Section, chunk.Page)
		if seen[key] {
			continue
		}
		seen[key] = true

		citations = append(citations, models.Citation{
			Section:     chunk.Section,
			Page:        chunk.Page,
			TextSnippet: snippet(chunk.Text),
		})
	}

	sort.Slice(citations, func(i, j int) bool {
		if citations[i].Page != citations[j].Page {
			return citations[i].Page < citations[j].Page
		}
		return citations[i].Section < citations[j].Section
	})

	return citations
}

func snippet(text string) string {
	if len(text) > snippetMaxLen {
		return text[:snippetMaxLen] + "..."
	}
	return text
}

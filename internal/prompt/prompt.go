// Package prompt turns retrieved book records into the grounded message
// pair sent to the generative model. This is pure string construction;
// the literal layout is part of the contract with the model's
// instruction following and must not drift.
package prompt

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"book-rag/internal/models"
)

const maxSummaryKeywords = 3

// Summarize renders one retrieved record as a terse human-readable line.
// Only the first three subject entries are surfaced, which bounds prompt
// length no matter how many subjects a record carries.
func Summarize(rec models.BookRecord) string {
	entries := strings.Split(rec.Subjects, ",")
	keywords := make([]string, 0, maxSummaryKeywords)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		keywords = append(keywords, entry)
		if len(keywords) == maxSummaryKeywords {
			break
		}
	}
	return fmt.Sprintf("%s by %s (%s). Keywords: %s",
		rec.Title, rec.Author, rec.Year, strings.Join(keywords, ", "))
}

// BuildPrompt assembles the user prompt: the quoted query, the numbered
// summaries in ranker order and the fixed instruction block.
func BuildPrompt(query string, summaries []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User query: '%s'.\n\n", query)
	sb.WriteString("Retrieved book details:\n")
	for i, summary := range summaries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, summary)
	}
	sb.WriteString("\n")
	sb.WriteString(models.PromptInstructions)
	return sb.String()
}

// ParseRecommendations decodes the JSON array the instructions ask the
// model to produce. Models sometimes wrap the array in a code fence
// despite the instructions, so fences are tolerated.
func ParseRecommendations(text string) ([]models.Recommendation, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var recs []models.Recommendation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &recs); err != nil {
		return nil, fmt.Errorf("parsing recommendations: %w", err)
	}
	return recs, nil
}

// BuildMessages wraps the prompt as the user message and prepends the
// fixed recommendation persona. Numbering in the prompt communicates
// relevance rank, so records must arrive in ranker order.
func BuildMessages(query string, records []models.BookRecord) []models.ChatMessage {
	summaries := make([]string, len(records))
	for i, rec := range records {
		summaries[i] = Summarize(rec)
	}
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: models.SystemPersona},
		{Role: models.RoleUser, Content: BuildPrompt(query, summaries)},
	}
}

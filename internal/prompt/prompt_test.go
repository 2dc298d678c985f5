package prompt

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/models"
)

var whitespace = regexp.MustCompile(`\s+`)

func squash(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func fixtureRecords() []models.BookRecord {
	return []models.BookRecord{
		{Title: "hunter x hunter", Author: "yoshihiro togashi", Year: "1998", Subjects: "magic, hunter, graphic novel, shonen"},
		{Title: "wild", Author: "erin hunter", Year: "2003", Subjects: "cat, fantasy, fantasy fiction"},
		{Title: "inuyasha", Author: "rumiko takahashi", Year: "1998", Subjects: "good evil, magic, teenage girl"},
		{Title: "long shadow", Author: "erin hunter", Year: "2008", Subjects: "cat, fantasy, fantasy fiction"},
		{Title: "forest secret", Author: "erin hunter", Year: "2003", Subjects: "cat, fantasy, fantasy fiction"},
	}
}

func TestSummarizeLimitsKeywords(t *testing.T) {
	got := Summarize(fixtureRecords()[0])
	assert.Equal(t, "hunter x hunter by yoshihiro togashi (1998). Keywords: magic, hunter, graphic novel", got)
}

func TestSummarizeFewSubjects(t *testing.T) {
	rec := models.BookRecord{Title: "dune", Author: "frank herbert", Year: "1965", Subjects: "desert"}
	assert.Equal(t, "dune by frank herbert (1965). Keywords: desert", Summarize(rec))

	rec.Subjects = ""
	assert.Equal(t, "dune by frank herbert (1965). Keywords: ", Summarize(rec))
}

func TestBuildPromptLiteral(t *testing.T) {
	records := fixtureRecords()
	summaries := make([]string, len(records))
	for i, rec := range records {
		summaries[i] = Summarize(rec)
	}

	expected := "User query: 'anime similar to hunter hunter'.\n" +
		"\n" +
		"Retrieved book details:\n" +
		"1. hunter x hunter by yoshihiro togashi (1998). Keywords: magic, hunter, graphic novel\n" +
		"2. wild by erin hunter (2003). Keywords: cat, fantasy, fantasy fiction\n" +
		"3. inuyasha by rumiko takahashi (1998). Keywords: good evil, magic, teenage girl\n" +
		"4. long shadow by erin hunter (2008). Keywords: cat, fantasy, fantasy fiction\n" +
		"5. forest secret by erin hunter (2003). Keywords: cat, fantasy, fantasy fiction\n" +
		"\n" +
		"Instructions:\n" +
		"- Provide a JSON array of book recommendations.\n" +
		"- Each recommendation must be an object with the following keys:\n" +
		"    • title: the book title\n" +
		"    • description: a clear, friendly explanation of why the book is relevant to the query\n" +
		"- If none of the retrieved books match the query, generate your own recommendations.\n" +
		"- Output strictly the JSON array without any additional text."

	got := BuildPrompt("anime similar to hunter hunter", summaries)
	assert.Equal(t, squash(expected), squash(got))
}

func TestBuildMessagesShape(t *testing.T) {
	msgs := BuildMessages("anime similar to hunter hunter", fixtureRecords())
	require.Len(t, msgs, 2)

	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, models.SystemPersona, msgs[0].Content)

	assert.Equal(t, models.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "User query: 'anime similar to hunter hunter'.")
	assert.Contains(t, msgs[1].Content, "1. hunter x hunter by yoshihiro togashi (1998)")
	assert.Contains(t, msgs[1].Content, "Output strictly the JSON array")
}

func TestBuildMessagesNoRecords(t *testing.T) {
	msgs := BuildMessages("anything", nil)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Retrieved book details:")
}

func TestParseRecommendations(t *testing.T) {
	recs, err := ParseRecommendations(`[{"title":"dune","description":"desert epic"},{"title":"hyperion","description":"pilgrim tales"}]`)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "dune", recs[0].Title)
	assert.Equal(t, "pilgrim tales", recs[1].Description)
}

func TestParseRecommendationsFenced(t *testing.T) {
	recs, err := ParseRecommendations("```json\n[{\"title\":\"dune\",\"description\":\"desert epic\"}]\n```")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "dune", recs[0].Title)
}

func TestParseRecommendationsRejectsProse(t *testing.T) {
	_, err := ParseRecommendations("Here are some books you might like!")
	assert.ErrorContains(t, err, "parsing recommendations")
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identity lemmatizer keeps assertions independent of dictionary content
type identityLemmatizer struct{}

func (identityLemmatizer) Lemma(word string) string { return word }

func newIdentity() *Normalizer {
	return NewWithLemmatizer(identityLemmatizer{})
}

func TestNormalizeStripsPunctuationAndCase(t *testing.T) {
	n := newIdentity()

	assert.Equal(t, "hunter x hunter", n.Normalize("Hunter x Hunter!!!"))
	assert.Equal(t, "wizard oz", n.Normalize("The Wizard of Oz"))
	assert.Equal(t, "magic hunter", n.Normalize("  Magic,   Hunter  "))
}

func TestNormalizeDropsNonAlphaTokens(t *testing.T) {
	n := newIdentity()

	// digits survive the character strip but numeric tokens are not
	// meaningful embedding tokens
	assert.Equal(t, "catch", n.Normalize("Catch 22, 1961"))
}

func TestNormalizeEmptyAndGarbage(t *testing.T) {
	n := newIdentity()

	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("!!! ??? ..."))
	assert.Equal(t, "", n.Normalize("the of and"))
	assert.Equal(t, "", n.Normalize("🙂🙂🙂"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n, err := New()
	require.NoError(t, err)

	inputs := []string{
		"The Lord of the Rings",
		"anime similar to Hunter x Hunter",
		"fantasy fiction, graphic novels & MAGIC!",
		"",
		"a b c",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNormalizeSubjectsString(t *testing.T) {
	n := newIdentity()

	got := n.NormalizeSubjects("Magic, Graphic Novels, Fantasy Fiction")
	assert.Equal(t, "magic, graphic novels, fantasy fiction", got)
}

func TestNormalizeSubjectsList(t *testing.T) {
	n := newIdentity()

	assert.Equal(t, "magic, hunter", n.NormalizeSubjects([]string{"Magic!", "The Hunter"}))
	assert.Equal(t, "magic, hunter", n.NormalizeSubjects([]any{"Magic!", "The Hunter"}))
}

func TestNormalizeSubjectsDefensiveDefault(t *testing.T) {
	n := newIdentity()

	assert.Equal(t, "", n.NormalizeSubjects(nil))
	assert.Equal(t, "", n.NormalizeSubjects(42))
	assert.Equal(t, "", n.NormalizeSubjects(map[string]string{"a": "b"}))
}

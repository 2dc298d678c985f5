package models

// BookRecord is one entry in the recommendation corpus. Text fields are
// stored normalized (lowercase, stopwords removed, alphanumeric only),
// so EmbeddingInput can always be regenerated from the record itself.
type BookRecord struct {
	BookID         string `json:"book_id"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Subjects       string `json:"subjects"`
	Year           string `json:"year"`
	EmbeddingInput string `json:"embedding_input"`
}

// Recommendation is one entry of the JSON array the model is instructed
// to produce.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

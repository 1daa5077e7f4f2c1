package types

// DocSource is the logical source name reported for every retrieved
// support document.
const DocSource = "customer_support_responses"

// Document is one indexed support record: the customer's question as
// content, with the known answer carried in metadata. Immutable once
// indexed.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Answer returns the answer associated with this document, if any.
func (d Document) Answer() string {
	return d.Metadata["answer"]
}

// ScoredDocument is a retrieval result. Score is the cosine distance
// reported by the index: lower means more similar. Results are always
// ordered by ascending score.
type ScoredDocument struct {
	Document Document
	Score    float64
}

// SimilarityScore is the boundary representation of one retrieval result.
type SimilarityScore struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
	Answer  string  `json:"answer,omitempty"`
}

// Turn is one user-input/assistant-response pair within a session.
// Turns are append-only and never mutated after creation.
type Turn struct {
	UserInput        string            `json:"user_input"`
	AIResponse       string            `json:"ai_response"`
	Timestamp        string            `json:"timestamp"`
	SimilarityScores []SimilarityScore `json:"similarity_scores,omitempty"`
}

// ScoresFromDocs converts retrieval results into boundary similarity
// scores, preserving order.
func ScoresFromDocs(docs []ScoredDocument) []SimilarityScore {
	scores := make([]SimilarityScore, len(docs))
	for i, d := range docs {
		scores[i] = SimilarityScore{
			Content: d.Document.Content,
			Score:   d.Score,
			Source:  DocSource,
			Answer:  d.Document.Answer(),
		}
	}
	return scores
}

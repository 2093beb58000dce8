package models

// PageRecord is one page of extracted document text, as produced by the
// PDF extractor. Page numbers are 1-based.
type PageRecord struct {
	Text    string
	Page    int
	Section string
}

// Chunk is a bounded, overlapping slice of a document's text. It is the
// unit of embedding and retrieval. ChunkID doubles as the storage key and
// must be unique across every document sharing the retrieval index.
type Chunk struct {
	Text       string
	DocumentID string
	Section    string
	Page       int
	ChunkID    int64
	Embedding  []float32
}

// RetrievalResult is a candidate chunk returned by a similarity search,
// scored by cosine similarity in [-1, 1].
type RetrievalResult struct {
	Text    string
	Section string
	Page    int
	ChunkID int64
	Score   float32
}

// Citation points a reader at the evidence behind an answer.
type Citation struct {
	Section     string `json:"section"`
	Page        int    `json:"page"`
	TextSnippet string `json:"text_snippet"`
}

// Answer is a synthesized answer with its supporting citations.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// UploadResult reports the outcome of a document ingestion.
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// Upload statuses.
const (
	StatusIndexed        = "indexed"
	StatusAlreadyIndexed = "already_indexed"
)

// QueryRequest is a question scoped to one ingested document.
type QueryRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k"`
}

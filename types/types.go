package types

// Chunk is the unit of embedding and retrieval: a bounded slice of
// normalized source text plus the vector produced for it.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata travels with a chunk into the vector store. Page is 0 when the
// source has no page structure (web pages).
type Metadata struct {
	Source    string `json:"source"`
	Namespace string `json:"namespace"`
	Page      int    `json:"page,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Turn is one conversation message. The core only carries turns through a
// single exchange; persistence belongs to the conversation store.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// IngestReport aggregates the outcome of one ingestion call. Per-source
// failures land in Results with Added == 0 and never fail the whole call.
type IngestReport struct {
	TotalAdded   int            `json:"totalAdded"`
	ChunkSize    int            `json:"chunkSize"`
	ChunkOverlap int            `json:"chunkOverlap"`
	Results      []SourceResult `json:"results"`
}

type SourceResult struct {
	Source    string `json:"source,omitempty"`
	URL       string `json:"url,omitempty"`
	Namespace string `json:"namespace"`
	Added     int    `json:"added"`
	Pages     int    `json:"pages,omitempty"`
	Chunks    int    `json:"chunks,omitempty"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}

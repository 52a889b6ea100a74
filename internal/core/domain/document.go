package domain

import "time"

// DocumentRecord is the text of one non-empty PDF page.
type DocumentRecord struct {
	SourceID   string `json:"source_id"`
	Text       string `json:"text"`
	SequenceNo int    `json:"sequence_no"`
}

type IndexEntry struct {
	Vector  []float32      `json:"vector"`
	Payload DocumentRecord `json:"payload"`
}

type RetrievedRecord struct {
	Record DocumentRecord `json:"record"`
	Score  float64        `json:"score"`
}

// Citation is a time-limited link to one source document.
type Citation struct {
	SourceID  string    `json:"source_id"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Answer struct {
	Query     string            `json:"query"`
	Text      string            `json:"text"`
	Citations []Citation        `json:"citations"`
	Sources   []RetrievedRecord `json:"sources"`
}

// ObjectInfo describes one object in a storage bucket.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

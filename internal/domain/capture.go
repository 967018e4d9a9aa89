package domain

import "time"

// CaptureStage is a state of the capture pipeline
type CaptureStage string

const (
	CaptureStageIdle       CaptureStage = "idle"
	CaptureStageExtracting CaptureStage = "extracting"
	CaptureStageChunking   CaptureStage = "chunking"
	CaptureStageEmbedding  CaptureStage = "embedding"
	CaptureStageStoring    CaptureStage = "storing"
	CaptureStageDone       CaptureStage = "done"
	CaptureStageFailed     CaptureStage = "failed"
)

// QueryStage is a state of the query pipeline
type QueryStage string

const (
	QueryStageRetrieving QueryStage = "retrieving"
	QueryStageComposing  QueryStage = "composing"
	QueryStageLogging    QueryStage = "logging"
	QueryStageDone       QueryStage = "done"
	QueryStageFailed     QueryStage = "failed"
)

// CapturePayload is the raw input of one capture: an image for OCR, or text
// that was already extracted by the caller.
type CapturePayload struct {
	Image       []byte
	ContentType string
	Text        string
	Source      string
	CapturedAt  time.Time
}

// CaptureOutcome is reported to the caller for every capture, successful or not
type CaptureOutcome struct {
	Success             bool         `json:"success"`
	CharactersExtracted int          `json:"characters_extracted"`
	ChunksStored        int          `json:"chunks_stored"`
	Message             string       `json:"message"`
	Code                string       `json:"code,omitempty"`
	SourceTag           string       `json:"source_tag,omitempty"`
	Stage               CaptureStage `json:"stage"`
	ArchiveURL          string       `json:"archive_url,omitempty"`
}

// Source is a short excerpt of a chunk that supported an answer
type Source struct {
	ChunkID   string  `json:"chunk_id"`
	SourceTag string  `json:"source"`
	Snippet   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Answer is the result of a successful query
type Answer struct {
	Text    string   `json:"response"`
	Sources []Source `json:"sources"`
}

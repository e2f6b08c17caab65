package entity

import "time"

// ExtractionResult is the outcome of processing one document. Success=false carries
// ErrorMessage and no record.
type ExtractionResult struct {
	Success          bool          `json:"success"`
	Record           *Record       `json:"record,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	ExtractionMethod string        `json:"extraction_method"`
	ProcessingTime   time.Duration `json:"processing_time"`
	Warnings         []string      `json:"warnings,omitempty"`
}

// BatchResult summarises a batch of documents.
type BatchResult struct {
	BatchID    string            `json:"batch_id"`
	TotalFiles int               `json:"total_files"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Flagged    int               `json:"flagged"`
	Records    []*Record         `json:"records"`
	Errors     map[string]string `json:"errors"`
}

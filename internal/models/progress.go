package models

// ProgressStatus is the state of a parse run.
type ProgressStatus string

const (
	StatusIdle       ProgressStatus = "idle"
	StatusReading    ProgressStatus = "reading"
	StatusParsing    ProgressStatus = "parsing"
	StatusExtracting ProgressStatus = "extracting"
	StatusSaving     ProgressStatus = "saving"
	StatusComplete   ProgressStatus = "complete"
	StatusError      ProgressStatus = "error"
)

// Terminal reports whether no further transitions are allowed from s.
func (s ProgressStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ParserProgress is one progress update of a parse run.
type ParserProgress struct {
	RunID       string         `json:"runId,omitempty"`
	Status      ProgressStatus `json:"status"`
	Progress    int            `json:"progress"`
	Message     string         `json:"message,omitempty"`
	CurrentPage int            `json:"currentPage,omitempty"`
	TotalPages  int            `json:"totalPages,omitempty"`
}

package engine

import (
	"errors"

	"github.com/insightdelivered/statement-engine/internal/models"
)

var (
	// ErrNoPages is returned when ParseStatement is called without pages.
	ErrNoPages = errors.New("no pages supplied")
	// ErrProgressFinished is returned when ParseStatement is given a
	// progress reporter that already reached a terminal state.
	ErrProgressFinished = errors.New("progress reporter already finished")

	ErrUnsupportedBankFormat = errors.New("unsupported bank format")
	ErrEmptyInput            = errors.New("statement contains no text")
	ErrCorruptPageStructure  = errors.New("page count does not match the document")
	ErrNoTransactions        = errors.New("no transactions found")
	ErrInvalidPeriod         = errors.New("invalid statement period")
	ErrUnreadableDates       = errors.New("unreadable transaction dates")
	ErrCancelled             = errors.New("cancelled")
)

var sentinels = map[models.IssueKind]error{
	models.KindUnsupportedBankFormat:  ErrUnsupportedBankFormat,
	models.KindEmptyInput:             ErrEmptyInput,
	models.KindCorruptPageStructure:   ErrCorruptPageStructure,
	models.KindNoTransactions:         ErrNoTransactions,
	models.KindInvalidStatementPeriod: ErrInvalidPeriod,
	models.KindUnreadableDates:        ErrUnreadableDates,
	models.KindCancelled:              ErrCancelled,
}

// Error is returned when a run ends in the error state. It matches the
// sentinel of its Kind with errors.Is.
type Error struct {
	Kind    models.IssueKind
	Message string
	// Cause is the underlying error, such as context.Canceled.
	Cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// KindOf returns the issue kind carried by err, or "" if err is not an *Error.
func KindOf(err error) models.IssueKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package models

// IssueKind names a category of problem found while parsing or validating.
type IssueKind string

// Fatal kinds.
const (
	KindUnsupportedBankFormat  IssueKind = "UnsupportedBankFormat"
	KindEmptyInput             IssueKind = "EmptyInput"
	KindCorruptPageStructure   IssueKind = "CorruptPageStructure"
	KindNoTransactions         IssueKind = "NoTransactions"
	KindInvalidStatementPeriod IssueKind = "InvalidStatementPeriod"
	KindUnreadableDates        IssueKind = "UnreadableDates"
	KindCancelled              IssueKind = "Cancelled"
)

// Warning kinds.
const (
	KindAmbiguousBankDetection        IssueKind = "AmbiguousBankDetection"
	KindHintMismatch                  IssueKind = "HintMismatch"
	KindUnparsedLineRatioExceeded     IssueKind = "UnparsedLineRatioExceeded"
	KindBalanceReconciliationMismatch IssueKind = "BalanceReconciliationMismatch"
	KindRowDateFallback               IssueKind = "RowDateFallback"
)

// Issue is a single structured error or warning.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
	Page    int       `json:"page,omitempty"`
	Line    int       `json:"line,omitempty"`
}

// ValidationResult is invalid iff at least one error was recorded.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Bank     BankID  `json:"bank,omitempty"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// ErrorMessages returns the messages of all errors.
func (v ValidationResult) ErrorMessages() []string {
	return messages(v.Errors)
}

// WarningMessages returns the messages of all warnings.
func (v ValidationResult) WarningMessages() []string {
	return messages(v.Warnings)
}

// HasError reports whether an error of the given kind was recorded.
func (v ValidationResult) HasError(kind IssueKind) bool {
	return hasKind(v.Errors, kind)
}

// HasWarning reports whether a warning of the given kind was recorded.
func (v ValidationResult) HasWarning(kind IssueKind) bool {
	return hasKind(v.Warnings, kind)
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Message)
	}
	return out
}

func hasKind(issues []Issue, kind IssueKind) bool {
	for _, is := range issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

package models

import "encoding/json"

// ResultKind discriminates the shape of a QueryResult.
type ResultKind string

const (
	ResultKindRows     ResultKind = "rows"
	ResultKindAffected ResultKind = "affected"
	ResultKindFailed   ResultKind = "failed"
)

// ExecutedMessage is reported for statements that return no rows.
const ExecutedMessage = "Query executed successfully"

// QueryResult is the outcome of executing a validated statement. Only the
// fields belonging to Kind are meaningful, and only those are serialized.
type QueryResult struct {
	Kind         ResultKind
	Columns      []string
	Rows         [][]any
	AffectedRows int64
	Message      string
	Error        string
}

// NewRowsResult builds the row-returning shape.
func NewRowsResult(columns []string, rows [][]any) *QueryResult {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return &QueryResult{Kind: ResultKindRows, Columns: columns, Rows: rows}
}

// NewAffectedResult builds the shape for statements without a column description.
func NewAffectedResult(affected int64) *QueryResult {
	return &QueryResult{Kind: ResultKindAffected, AffectedRows: affected, Message: ExecutedMessage}
}

// NewFailedResult builds the reported-failure shape.
func NewFailedResult(message string) *QueryResult {
	return &QueryResult{Kind: ResultKindFailed, Error: message}
}

// Success is false only for the failed shape.
func (r *QueryResult) Success() bool {
	return r.Kind != ResultKindFailed
}

// RowCount is the number of collected rows.
func (r *QueryResult) RowCount() int {
	return len(r.Rows)
}

type queryResultJSON struct {
	Success      bool      `json:"success"`
	Columns      *[]string `json:"columns,omitempty"`
	Rows         *[][]any  `json:"rows,omitempty"`
	RowCount     *int      `json:"row_count,omitempty"`
	AffectedRows *int64    `json:"affected_rows,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// MarshalJSON emits {success, columns, rows, row_count}, {success, affected_rows,
// message} or {success, error} depending on Kind.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	out := queryResultJSON{Success: r.Success()}

	switch r.Kind {
	case ResultKindRows:
		columns, rows, count := r.Columns, r.Rows, len(r.Rows)
		if columns == nil {
			columns = []string{}
		}
		if rows == nil {
			rows = [][]any{}
		}
		out.Columns, out.Rows, out.RowCount = &columns, &rows, &count
	case ResultKindAffected:
		affected := r.AffectedRows
		out.AffectedRows = &affected
		out.Message = r.Message
	default:
		out.Success = false
		out.Error = r.Error
	}

	return json.Marshal(out)
}

// ResponseEnvelope is the single response returned for a natural-language question.
// Exactly one of Results and Error is set.
type ResponseEnvelope struct {
	NaturalQuery string       `json:"natural_query"`
	GeneratedSQL string       `json:"generated_sql,omitempty"`
	Results      *QueryResult `json:"results,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Failed reports whether the pipeline short-circuited before execution.
func (e *ResponseEnvelope) Failed() bool {
	return e.Error != ""
}

package dataset

import "fmt"

// IngestErrorKind distinguishes why a file could not become a dataset.
type IngestErrorKind int

const (
	// KindUnreadable means the file could not be opened or read.
	KindUnreadable IngestErrorKind = iota + 1
	// KindNonNumeric means a line did not hold exactly two decimal numbers.
	KindNonNumeric
)

func (k IngestErrorKind) String() string {
	switch k {
	case KindUnreadable:
		return "unreadable"
	case KindNonNumeric:
		return "non-numeric"
	default:
		return "unknown"
	}
}

// IngestError is returned by Ingest. No partial dataset accompanies it.
type IngestError struct {
	Kind  IngestErrorKind
	Path  string
	Line  int    // 1-based, for KindNonNumeric
	Token string // offending token, for KindNonNumeric
	Err   error
}

func (e *IngestError) Error() string {
	switch e.Kind {
	case KindNonNumeric:
		if e.Token == "" {
			return fmt.Sprintf("ingest %s: line %d: expected two numeric values", e.Path, e.Line)
		}
		return fmt.Sprintf("ingest %s: line %d: non-numeric value %q", e.Path, e.Line, e.Token)
	default:
		return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
	}
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// IndexError reports an out-of-range point access.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Size)
}

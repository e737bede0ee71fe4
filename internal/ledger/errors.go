package ledger

import "fmt"

// PartialFailureError reports a cross-document flow where the first write
// landed and the second did not. Applied names the document that was
// written, Pending the one that was not.
type PartialFailureError struct {
	Op      string
	Applied string
	Pending string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s was saved but %s was not: %v", e.Op, e.Applied, e.Pending, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

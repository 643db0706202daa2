package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shieldhq/shield/core/catalog"
)

var (
	// errors
	ErrNotFound       = errors.New("submission not found")
	ErrResultNotFound = errors.New("score result not found")
	// ErrStatusConflict signals that a compare-and-set status transition found
	// the submission in a different state than expected.
	ErrStatusConflict = errors.New("submission status conflict")
)

// UnknownOptionError signals an answer whose selected option is not a key in
// its question's points mapping. Answer validation at submission time makes
// this unreachable in normal operation; when it does occur it is a
// programming-invariant violation and fails the whole scoring run.
type UnknownOptionError struct {
	QuestionID int
	Option     string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("question %d has no option %q", e.QuestionID, e.Option)
}

// IncompleteSubmissionError lists the path questions a submission has no answer for.
type IncompleteSubmissionError struct {
	Missing []int
}

func (e *IncompleteSubmissionError) Error() string {
	sort.Ints(e.Missing)
	ids := make([]string, 0, len(e.Missing))
	for _, id := range e.Missing {
		ids = append(ids, strconv.Itoa(id))
	}
	return "submission is missing answers for questions: " + strings.Join(ids, ", ")
}

// InvalidCatalogError signals a catalog whose maximum achievable score is zero,
// which cannot be normalized against. This is a configuration error and
// requires an administrator fix; it is not retried.
type InvalidCatalogError struct {
	Path catalog.Path
}

func (e *InvalidCatalogError) Error() string {
	return fmt.Sprintf("catalog for path %q has a zero max score", e.Path)
}

// Package inmem provides in-memory repository implementations used in
// tests and local development.
package inmem

import (
	"sync"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
)

type (
	DB struct {
		org         *orgTable
		catalog     *catalogTable
		submission  *submissionTable
		certificate *certificateTable
	}

	orgTable struct {
		table map[int]*org.Organization
		seq   int
		mutex sync.RWMutex
	}

	catalogTable struct {
		axes      map[int]*catalog.Axis
		questions map[int]*catalog.Question
		axisSeq   int
		qSeq      int
		mutex     sync.RWMutex
	}

	submissionTable struct {
		table   map[string]*scoring.Submission
		results map[string]*scoring.ScoreResult
		mutex   sync.RWMutex
	}

	certificateTable struct {
		table map[string]*certificate.Certificate
		seqs  map[int]int // year -> last issued sequence
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		org:     &orgTable{table: make(map[int]*org.Organization)},
		catalog: &catalogTable{axes: make(map[int]*catalog.Axis), questions: make(map[int]*catalog.Question)},
		submission: &submissionTable{
			table:   make(map[string]*scoring.Submission),
			results: make(map[string]*scoring.ScoreResult),
		},
		certificate: &certificateTable{table: make(map[string]*certificate.Certificate), seqs: make(map[int]int)},
	}
	return db, nil
}

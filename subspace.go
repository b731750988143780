/*
Package subspace is a library for cataloguing SubSpace level files and
object packages.
*/
package subspace

import (
	"io/ioutil"
	"log"
)

// DefaultWorkers is the number of files decoded in parallel by Scan.
const DefaultWorkers = 10

// Workshop scans directories of levels and object packages into a Catalog.
type Workshop struct {
	db      *Catalog
	logger  *log.Logger
	workers int
}

// New opens the catalog stored in file. A nil logger discards everything.
func New(file string, logger *log.Logger) (*Workshop, error) {
	db, err := NewCatalog(file)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}

	return &Workshop{
		db:      db,
		logger:  logger,
		workers: DefaultWorkers,
	}, nil
}

// SetWorkers changes how many files Scan decodes in parallel.
func (w *Workshop) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	w.workers = n
}

// Catalog returns the underlying catalog.
func (w *Workshop) Catalog() *Catalog {
	return w.db
}

// Close closes the catalog.
func (w *Workshop) Close() error {
	return w.db.Close()
}

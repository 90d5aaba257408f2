package store

import (
	"fmt"
	"log"

	"github.com/blevesearch/bleve"
)

// Index is an in-memory full-text index over history records. It is rebuilt
// from Postgres on startup and updated as records are written, so history
// search never touches the database.
type Index struct {
	idx    bleve.Index
	logger *log.Logger
}

type indexedRecord struct {
	Kind    string `json:"kind"`
	Input   string `json:"input"`
	Summary string `json:"summary"`
	Verdict string `json:"verdict"`
	UserID  string `json:"user_id"`
}

func NewIndex() (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("bleve index: %w", err)
	}
	return &Index{idx: idx, logger: log.New(log.Writer(), "[INDEX] ", log.LstdFlags)}, nil
}

// Add indexes one record.
func (i *Index) Add(r Record) error {
	doc := indexedRecord{Kind: r.Kind, Input: r.Input, UserID: r.UserID}
	if r.Result != nil {
		doc.Summary = r.Result.Summary
		doc.Verdict = string(r.Result.Verdict)
	}
	return i.idx.Index(r.ID, doc)
}

// Rebuild indexes every given record. Called once at startup against the
// freshly created index so search covers records written before this process.
func (i *Index) Rebuild(records []Record) error {
	for _, r := range records {
		if err := i.Add(r); err != nil {
			return fmt.Errorf("index rebuild at %s: %w", r.ID, err)
		}
	}
	i.logger.Printf("indexed %d existing records", len(records))
	return nil
}

// Remove drops one record from the index.
func (i *Index) Remove(id string) error { return i.idx.Delete(id) }

// Search returns the ids of a user's records matching the query, best first.
func (i *Index) Search(userID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	match := bleve.NewMatchQuery(query)
	owner := bleve.NewMatchQuery(userID)
	owner.SetField("user_id")
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, owner))
	req.Size = limit

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (i *Index) Close() error { return i.idx.Close() }

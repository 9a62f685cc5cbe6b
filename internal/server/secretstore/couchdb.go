package secretstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/go-kivik/kivik/v4"
)

// CouchDBBackend stores one document per path in a CouchDB database.
type CouchDBBackend struct {
	db *kivik.DB
}

func NewCouchDBBackend(client *kivik.Client, dbName string) *CouchDBBackend {
	return &CouchDBBackend{db: client.DB(dbName)}
}

type couchSecret struct {
	ID   string            `json:"_id"`
	Rev  string            `json:"_rev,omitempty"`
	Data map[string]string `json:"data"`
}

func couchDocID(path string) string {
	return fmt.Sprintf("secret:%s", path)
}

func (c *CouchDBBackend) Read(ctx context.Context, path string) (map[string]string, error) {
	var doc couchSecret
	if err := c.db.Get(ctx, couchDocID(path)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("couchdb get: %w", err)
	}
	if doc.Data == nil {
		doc.Data = map[string]string{}
	}
	return doc.Data, nil
}

func (c *CouchDBBackend) Write(ctx context.Context, path string, data map[string]string) error {
	id := couchDocID(path)
	doc := couchSecret{ID: id, Data: data}

	rev, err := c.db.GetRev(ctx, id)
	switch {
	case err == nil:
		doc.Rev = rev
	case kivik.HTTPStatus(err) != http.StatusNotFound:
		return fmt.Errorf("couchdb rev: %w", err)
	}

	if _, err := c.db.Put(ctx, id, doc); err != nil {
		return fmt.Errorf("couchdb put: %w", err)
	}
	return nil
}

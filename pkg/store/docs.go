package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"classlog/pkg/logger"
	"classlog/pkg/models"
)

// Document registry. Key format: doc:<id> -> models.Document JSON. Trashing
// flips a flag rather than deleting so the resolver can distinguish "known
// and trashed" from "unknown" (the latter is indeterminate and fail-open).

// ErrDocNotFound reports an id with no registry entry.
var ErrDocNotFound = fmt.Errorf("document not found")

func docKey(id string) []byte { return []byte("doc:" + id) }

// CreateDocument registers a fresh document and returns its handle.
func (s *Store) CreateDocument(name string) (models.Document, error) {
	doc := models.Document{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedTS: time.Now().UnixMilli(),
	}
	doc.URL = "classlog://doc/" + doc.ID
	b, err := json.Marshal(doc)
	if err != nil {
		return models.Document{}, err
	}
	if err := s.set(docKey(doc.ID), b); err != nil {
		logger.Error("doc_create_failed", "id", doc.ID, "error", err)
		return models.Document{}, err
	}
	logger.Info("doc_created", "id", doc.ID, "name", name)
	return doc, nil
}

// GetDocument loads a registry entry. Returns ErrDocNotFound for unknown ids.
func (s *Store) GetDocument(id string) (models.Document, error) {
	b, err := s.get(docKey(id))
	if err != nil {
		if isNotFound(err) {
			return models.Document{}, ErrDocNotFound
		}
		return models.Document{}, err
	}
	var doc models.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return models.Document{}, fmt.Errorf("corrupt document record %s: %w", id, err)
	}
	return doc, nil
}

// TrashDocument marks a document trashed. Idempotent.
func (s *Store) TrashDocument(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	doc.Trashed = true
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.set(docKey(id), b); err != nil {
		return err
	}
	logger.Info("doc_trashed", "id", id)
	return nil
}

// ListDocuments returns all registered documents, newest first.
func (s *Store) ListDocuments() ([]models.Document, error) {
	var out []models.Document
	err := s.scanPrefix([]byte("doc:"), func(key, val []byte) error {
		// sheet and row keys share the doc: namespace; registry entries
		// have no second colon after the id
		if idx := indexAfter(key, len("doc:"), ':'); idx >= 0 {
			return nil
		}
		var doc models.Document
		if err := json.Unmarshal(val, &doc); err != nil {
			logger.Warn("doc_record_corrupt", "key", string(key), "error", err)
			return nil
		}
		out = append(out, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTS > out[j].CreatedTS })
	return out, nil
}

// PurgeDocument removes the registry entry and every sheet row under the id.
// Used by the trash-recovery flow after caches and versions are cleared.
func (s *Store) PurgeDocument(id string) error {
	if err := s.deleteRange([]byte("doc:" + id + ":")); err != nil {
		return err
	}
	if err := s.deleteRange([]byte("props:doc:" + id + ":")); err != nil {
		return err
	}
	if err := s.delete(docKey(id)); err != nil && !isNotFound(err) {
		return err
	}
	logger.Info("doc_purged", "id", id)
	return nil
}

// indexAfter returns the index of the first occurrence of c in key at or
// after start, or -1.
func indexAfter(key []byte, start int, c byte) int {
	for i := start; i < len(key); i++ {
		if key[i] == c {
			return i
		}
	}
	return -1
}

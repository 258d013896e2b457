// Package attach resolves which physical document backs the logical app
// state. The remembered id lives in two durable property scopes (user wins)
// so either surviving a reset is enough to reattach. A confirmed-trashed
// document is purged and forgotten; an indeterminate lookup is treated as
// usable (fail-open) so a flaky registry read never strands the user.
package attach

import (
	"errors"
	"fmt"

	"classlog/pkg/cache"
	"classlog/pkg/errs"
	"classlog/pkg/logger"
	"classlog/pkg/models"
	"classlog/pkg/store"
	"classlog/pkg/version"
)

// PropDocID is the property key remembering the attached document id.
const PropDocID = "attached_doc_id"

// scriptScope is the pseudo-document owning the script-level copy of the
// remembered id (the second redundant storage scope).
const scriptScope = "_app"

// Resolver finds, remembers and retires backing documents.
type Resolver struct {
	kv       *store.Store
	versions *version.Store
	caches   *cache.Cache
}

func NewResolver(kv *store.Store, versions *version.Store, caches *cache.Cache) *Resolver {
	return &Resolver{kv: kv, versions: versions, caches: caches}
}

// Resolve returns the attached document, or ok=false when none resolves.
func (r *Resolver) Resolve() (models.Document, bool) {
	if id := r.rememberedID(); id != "" {
		doc, err := r.kv.GetDocument(id)
		switch {
		case err != nil:
			// lookup failed: trashed-status indeterminate, treat as usable
			logger.Warn("doc_lookup_indeterminate", "id", id, "error", err)
			return models.Document{ID: id, URL: "classlog://doc/" + id}, true
		case doc.Trashed:
			logger.Info("attached_doc_trashed", "id", id)
			r.retire(id)
			// fall through to discovery
		default:
			return doc, true
		}
	}

	// discover an ambient document: the newest non-trashed one we know of
	docs, err := r.kv.ListDocuments()
	if err != nil {
		logger.Warn("doc_discovery_failed", "error", err)
		return models.Document{}, false
	}
	for _, doc := range docs {
		if doc.Trashed {
			continue
		}
		r.Remember(doc.ID)
		logger.Info("doc_discovered", "id", doc.ID)
		return doc, true
	}
	return models.Document{}, false
}

// ResolveOrFail returns the attached document or errs.ErrNotAttached.
func (r *Resolver) ResolveOrFail() (models.Document, error) {
	doc, ok := r.Resolve()
	if !ok {
		return models.Document{}, errs.ErrNotAttached
	}
	return doc, nil
}

// Create builds a fresh backing document, remembers it and bumps its
// version so stale cache entries keyed to a coincidentally-reused id can
// never be served.
func (r *Resolver) Create(name string) (models.Document, error) {
	doc, err := r.kv.CreateDocument(name)
	if err != nil {
		return models.Document{}, fmt.Errorf("create document: %w", err)
	}
	r.Remember(doc.ID)
	if _, err := r.versions.Bump(doc.ID); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// Remember stores the id at both property scopes.
func (r *Resolver) Remember(docID string) {
	if err := r.kv.SetProp(store.ScopeUser, "", PropDocID, docID); err != nil {
		logger.Warn("remember_user_scope_failed", "id", docID, "error", err)
	}
	if err := r.kv.SetProp(store.ScopeDoc, scriptScope, PropDocID, docID); err != nil {
		logger.Warn("remember_doc_scope_failed", "id", docID, "error", err)
	}
}

// rememberedID reads the attached id, user scope taking precedence over the
// script-level copy.
func (r *Resolver) rememberedID() string {
	if id, ok, err := r.kv.GetProp(store.ScopeUser, "", PropDocID); err == nil && ok && id != "" {
		return id
	}
	if id, ok, err := r.kv.GetProp(store.ScopeDoc, scriptScope, PropDocID); err == nil && ok && id != "" {
		return id
	}
	return ""
}

// retire purges a trashed document's cache and version state and forgets it
// everywhere.
func (r *Resolver) retire(id string) {
	r.caches.RemoveAll(id, r.versions.Get(id))
	if err := r.versions.Purge(id); err != nil {
		logger.Warn("version_purge_failed", "id", id, "error", err)
	}
	if err := r.kv.DeleteProp(store.ScopeUser, "", PropDocID); err != nil {
		logger.Warn("forget_user_scope_failed", "id", id, "error", err)
	}
	if err := r.kv.DeleteProp(store.ScopeDoc, scriptScope, PropDocID); err != nil {
		logger.Warn("forget_doc_scope_failed", "id", id, "error", err)
	}
}

// IsNotAttached reports whether err is the not-attached condition.
func IsNotAttached(err error) bool {
	return errors.Is(err, errs.ErrNotAttached)
}

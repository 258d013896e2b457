package store

// Durable key/value properties at two scopes, mirroring the user-level and
// document-level property stores of the hosted platform the app grew up on.
// User scope wins when both hold a value; that precedence lives in the
// attach resolver, not here.

// Scope selects a property namespace.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeDoc
)

func propKey(scope Scope, docID, key string) []byte {
	if scope == ScopeUser {
		return []byte("props:user:" + key)
	}
	return []byte("props:doc:" + docID + ":" + key)
}

// GetProp reads a property. ok=false when unset; errors are returned so
// callers can decide whether to fail open.
func (s *Store) GetProp(scope Scope, docID, key string) (string, bool, error) {
	b, err := s.get(propKey(scope, docID, key))
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

// SetProp writes a property.
func (s *Store) SetProp(scope Scope, docID, key, val string) error {
	return s.set(propKey(scope, docID, key), []byte(val))
}

// DeleteProp removes a property. Deleting an unset property is not an error.
func (s *Store) DeleteProp(scope Scope, docID, key string) error {
	if err := s.delete(propKey(scope, docID, key)); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

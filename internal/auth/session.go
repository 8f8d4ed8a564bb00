package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionUserIDKey   = "user_id"
	sessionIdentityKey = "user"
)

// SessionStore is a gorilla store that can rotate session ids.
type SessionStore interface {
	sessions.Store
	Renew(r *http.Request, session *sessions.Session) error
}

// Sessions binds users to the request session.
type Sessions struct {
	store SessionStore
	name  string
}

func NewSessions(store SessionStore, cookieName string) *Sessions {
	return &Sessions{
		store: store,
		name:  cookieName,
	}
}

// Load returns the identity cached in the request session, if any.
func (s *Sessions) Load(r *http.Request) (Identity, bool, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return Identity{}, false, err
	}

	identity, ok := sess.Values[sessionIdentityKey].(Identity)
	if !ok {
		return Identity{}, false, nil
	}
	if _, ok := sess.Values[sessionUserIDKey].(int64); !ok {
		return Identity{}, false, nil
	}
	return identity, true, nil
}

// Start binds user to a freshly issued session id.
func (s *Sessions) Start(w http.ResponseWriter, r *http.Request, user *User) (Identity, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return Identity{}, err
	}
	if err := s.store.Renew(r, sess); err != nil {
		return Identity{}, err
	}
	return s.write(w, r, sess, user)
}

// Refresh rewrites the cached identity after the user row changed.
func (s *Sessions) Refresh(w http.ResponseWriter, r *http.Request, user *User) (Identity, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return Identity{}, err
	}
	return s.write(w, r, sess, user)
}

// Destroy removes the session. Destroying an absent session is not an error.
func (s *Sessions) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	sess.Values = make(map[interface{}]interface{})
	return sess.Save(r, w)
}

func (s *Sessions) write(w http.ResponseWriter, r *http.Request, sess *sessions.Session, user *User) (Identity, error) {
	identity, err := NewIdentity(user)
	if err != nil {
		return Identity{}, err
	}

	sess.Values[sessionUserIDKey] = user.ID
	sess.Values[sessionIdentityKey] = identity
	if err := sess.Save(r, w); err != nil {
		return Identity{}, fmt.Errorf("failed to save session: %w", err)
	}
	return identity, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Store is a gorilla/sessions Store whose cookie carries only a signed
// session id. Values live server-side in a Backend.
type Store struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	backend    Backend
	serializer securecookie.GobEncoder
	logger     *slog.Logger
}

var _ sessions.Store = (*Store)(nil)

// NewStore signs cookies with keyPairs, as securecookie.CodecsFromPairs expects them.
func NewStore(backend Backend, logger *slog.Logger, opts sessions.Options, keyPairs ...[]byte) *Store {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, codec := range codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}

	return &Store{
		Codecs:  codecs,
		Options: &opts,
		backend: backend,
		logger:  logger,
	}
}

// Get returns the session cached in the request registry, loading it on first use.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie. A missing, forged
// or expired cookie yields a fresh session.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.Codecs...); err != nil {
		s.logger.DebugContext(r.Context(), "discarding invalid session cookie", "error", err)
		return session, nil
	}

	data, err := s.backend.Get(r.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.serializer.Deserialize(data, &session.Values); err != nil {
		s.logger.WarnContext(r.Context(), "discarding undecodable session", "error", err)
		return session, nil
	}

	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save persists the session and refreshes the cookie. A negative MaxAge
// destroys the server-side record and expires the cookie.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Destroy(r.Context(), session.ID); err != nil {
				return fmt.Errorf("failed to destroy session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	if err := s.backend.Set(r.Context(), session.ID, data, expiresAt); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}

	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Renew drops the server-side record behind session and clears it, so the
// next Save issues a fresh id. Call it when the session's principal changes.
func (s *Store) Renew(r *http.Request, session *sessions.Session) error {
	if session.ID != "" {
		if err := s.backend.Destroy(r.Context(), session.ID); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	session.ID = ""
	session.IsNew = true
	session.Values = make(map[interface{}]interface{})
	return nil
}

// StartCleanup purges expired sessions every interval until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.backend.DeleteExpired(ctx)
				if err != nil {
					s.logger.ErrorContext(ctx, "failed to purge expired sessions", "error", err)
					continue
				}
				if n > 0 {
					s.logger.InfoContext(ctx, "purged expired sessions", "count", n)
				}
			}
		}
	}()
}

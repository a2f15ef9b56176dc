package gate

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie name used by the HTTP server.
const SessionName = "gallery-session"

// CookieSession adapts one request's gorilla session to SessionStore.
// Every write saves the session, adding a Set-Cookie header to w, so writes
// must happen before the response body is written.
type CookieSession struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

// NewCookieSession loads the request's session from store. A cookie that
// fails to decode, for example after the secret changed, yields a fresh session.
func NewCookieSession(store sessions.Store, w http.ResponseWriter, r *http.Request) *CookieSession {
	session, err := store.Get(r, SessionName)
	if err != nil {
		session, _ = store.New(r, SessionName)
	}
	return &CookieSession{session: session, r: r, w: w}
}

func (c *CookieSession) Get(key string) (string, error) {
	v, _ := c.session.Values[key].(string)
	return v, nil
}

func (c *CookieSession) Set(key, value string) error {
	c.session.Values[key] = value
	return c.save()
}

func (c *CookieSession) Delete(key string) error {
	delete(c.session.Values, key)
	return c.save()
}

func (c *CookieSession) save() error {
	if err := c.session.Save(c.r, c.w); err != nil {
		return fmt.Errorf("saving cookie session: %w", err)
	}
	return nil
}

// NewCookieStore creates the gorilla cookie store used by the server.
func NewCookieStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.MaxAge(86400 * 7)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	return store
}

var _ SessionStore = (*CookieSession)(nil)

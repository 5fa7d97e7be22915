package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vtop-backend/internal/sessionstore"
	"vtop-backend/internal/vtop"
	"vtop-backend/lib/telemetry"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const report_session_store = "api.session-store"

// cachedClient serializes use of a portal client, a client holds a single
// csrf token that every request consumes.
type cachedClient struct {
	lock   sync.Mutex
	client *vtop.Client
}

type sessionCache struct {
	cache *expirable.LRU[string, *cachedClient]
	// rebuilds makes concurrent misses for one session share a single resume,
	// each resume rotates the csrf token of the portal session.
	rebuilds *singleflight.Group
	store    sessionstore.Store
	connect  func(username, authorizedID string) (*vtop.Client, error)
	tel      telemetry.API
}

func newSessionCache(
	store sessionstore.Store,
	ttl time.Duration,
	tel telemetry.API,
	connect func(username, authorizedID string) (*vtop.Client, error),
) sessionCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return sessionCache{
		cache:    expirable.NewLRU[string, *cachedClient](2048, nil, ttl),
		rebuilds: &singleflight.Group{},
		store:    store,
		connect:  connect,
		tel:      tel,
	}
}

func (s sessionCache) Add(id string, client *vtop.Client) {
	s.cache.Add(id, &cachedClient{client: client})
}

// Get returns the client of a session, a client missing from memory is
// rebuilt from the stored cookie without solving a captcha.
func (s sessionCache) Get(ctx context.Context, id string) (*cachedClient, error) {
	cached, hit := s.cache.Get(id)
	if hit {
		return cached, nil
	}

	result, err, _ := s.rebuilds.Do(id, func() (any, error) {
		cached, hit := s.cache.Get(id)
		if hit {
			return cached, nil
		}
		return s.rebuild(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*cachedClient), nil
}

func (s sessionCache) rebuild(ctx context.Context, id string) (*cachedClient, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	client, err := s.connect(session.Username, session.AuthorizedID)
	if err != nil {
		return nil, err
	}
	err = client.ImportCookie(session.Cookie)
	if err != nil {
		s.forget(ctx, id)
		return nil, fmt.Errorf("%w: %w", vtop.ErrSessionExpired, err)
	}
	err = client.Resume(ctx)
	if err != nil {
		if errors.Is(err, vtop.ErrSessionExpired) {
			s.forget(ctx, id)
		}
		return nil, err
	}

	cached := &cachedClient{client: client}
	s.cache.Add(id, cached)
	return cached, nil
}

// Use runs fn with exclusive access to the client of a session. The session
// is forgotten once the portal reports it expired and its cookie is saved
// after every successful use.
func (s sessionCache) Use(ctx context.Context, id string, fn func(client *vtop.Client) error) error {
	cached, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	cached.lock.Lock()
	defer cached.lock.Unlock()

	err = fn(cached.client)
	if errors.Is(err, vtop.ErrSessionExpired) {
		s.forget(ctx, id)
		return err
	}
	if err != nil {
		return err
	}

	cookie, err := cached.client.ExportCookie()
	if err != nil {
		return nil
	}
	err = s.store.Touch(ctx, id, cookie)
	if err != nil {
		s.tel.ReportBroken(report_session_store, "touch", err)
	}
	return nil
}

func (s sessionCache) Remove(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.store.Delete(ctx, id)
}

// forget removes a session that can no longer be resumed, the caller already
// has an error to return so a failed delete is only reported.
func (s sessionCache) forget(ctx context.Context, id string) {
	err := s.Remove(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_session_store, "delete", err)
	}
}

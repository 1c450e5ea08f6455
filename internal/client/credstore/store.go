// Package credstore keeps the CLI's credential locally: either a GitHub
// OAuth access token or a password session token, never both, each with
// an expiry enforced on read.
package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/repopix/internal/dbx"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
)

type Kind string

const (
	KindGitHub   Kind = "github"
	KindPassword Kind = "password"
)

const (
	keyGitHubToken   = "github_oauth_token"
	keyGitHubUser    = "github_oauth_user"
	keyGitHubExpires = "github_oauth_expires"

	keyPasswordToken   = "upload_oauth_token"
	keyPasswordExpires = "upload_oauth_expires"
)

func keysOf(k Kind) []string {
	switch k {
	case KindGitHub:
		return []string{keyGitHubToken, keyGitHubUser, keyGitHubExpires}
	case KindPassword:
		return []string{keyPasswordToken, keyPasswordExpires}
	}
	return nil
}

type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type GitHubCredential struct {
	AccessToken string
	User        User
	ExpiresAt   time.Time
}

type PasswordCredential struct {
	SessionToken string
	ExpiresAt    time.Time
}

type Store struct {
	db     *sql.DB
	repo   metadata.Repository
	clock  timex.Clock
	logger logging.Logger
}

func New(db *sql.DB, clock timex.Clock, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{
		db:     db,
		repo:   metadata.NewSQLiteRepository(db),
		clock:  clock,
		logger: logger.With("module", "credstore"),
	}
}

func (s *Store) SaveGitHub(ctx context.Context, c GitHubCredential) error {
	user, err := json.Marshal(c.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.replace(ctx, KindPassword, map[string][]byte{
		keyGitHubToken:   []byte(c.AccessToken),
		keyGitHubUser:    user,
		keyGitHubExpires: encodeTime(c.ExpiresAt),
	})
}

func (s *Store) SavePassword(ctx context.Context, c PasswordCredential) error {
	return s.replace(ctx, KindGitHub, map[string][]byte{
		keyPasswordToken:   []byte(c.SessionToken),
		keyPasswordExpires: encodeTime(c.ExpiresAt),
	})
}

// replace writes values and drops the other credential kind in one
// transaction.
func (s *Store) replace(ctx context.Context, other Kind, values map[string][]byte) error {
	return dbx.WithRepoTx(ctx, s.db, metadata.NewSQLiteRepository, func(ctx context.Context, r *metadata.SQLiteRepository) error {
		if err := r.Delete(ctx, keysOf(other)...); err != nil {
			return err
		}
		for k, v := range values {
			if err := r.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadGitHub returns the stored GitHub credential, or nil when there is
// none or it has expired. Expired credentials are removed.
func (s *Store) LoadGitHub(ctx context.Context) (*GitHubCredential, error) {
	token, err := s.repo.Get(ctx, keyGitHubToken)
	if err != nil || len(token) == 0 {
		return nil, err
	}

	expires, ok, err := s.expiry(ctx, KindGitHub, keyGitHubExpires)
	if err != nil || !ok {
		return nil, err
	}

	c := &GitHubCredential{AccessToken: string(token), ExpiresAt: expires}
	raw, err := s.repo.Get(ctx, keyGitHubUser)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.User); err != nil {
			s.logger.Warn(ctx, "stored github user is unreadable", "error", err)
		}
	}
	return c, nil
}

// LoadPassword returns the stored password session, or nil when there is
// none or it has expired. Expired sessions are removed.
func (s *Store) LoadPassword(ctx context.Context) (*PasswordCredential, error) {
	token, err := s.repo.Get(ctx, keyPasswordToken)
	if err != nil || len(token) == 0 {
		return nil, err
	}

	expires, ok, err := s.expiry(ctx, KindPassword, keyPasswordExpires)
	if err != nil || !ok {
		return nil, err
	}
	return &PasswordCredential{SessionToken: string(token), ExpiresAt: expires}, nil
}

// expiry reads the expiry under key and clears kind when it is missing,
// unparsable or in the past.
func (s *Store) expiry(ctx context.Context, kind Kind, key string) (time.Time, bool, error) {
	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	expires, ok := decodeTime(raw)
	if ok && !s.clock.Now().After(expires) {
		return expires, true, nil
	}

	s.logger.Debug(ctx, "credential expired", "kind", string(kind))
	return time.Time{}, false, s.Clear(ctx, kind)
}

func (s *Store) Clear(ctx context.Context, kind Kind) error {
	return s.repo.Delete(ctx, keysOf(kind)...)
}

func (s *Store) ClearAll(ctx context.Context) error {
	return dbx.WithRepoTx(ctx, s.db, metadata.NewSQLiteRepository, func(ctx context.Context, r *metadata.SQLiteRepository) error {
		return r.Delete(ctx, append(keysOf(KindGitHub), keysOf(KindPassword)...)...)
	})
}

// Active reports which kind is stored and unexpired, GitHub first.
func (s *Store) Active(ctx context.Context) (Kind, error) {
	gh, err := s.LoadGitHub(ctx)
	if err != nil {
		return "", err
	}
	if gh != nil {
		return KindGitHub, nil
	}
	pw, err := s.LoadPassword(ctx)
	if err != nil {
		return "", err
	}
	if pw != nil {
		return KindPassword, nil
	}
	return "", nil
}

// Expiry is stored as decimal epoch milliseconds.
func encodeTime(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10))
}

func decodeTime(b []byte) (time.Time, bool) {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

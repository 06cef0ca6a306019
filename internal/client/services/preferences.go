// Package services contains client-side application services backed by the
// local database.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ciphersafe/internal/dbx"
)

const (
	keyLastEmail   = "last_email"
	keyLastLoginAt = "last_login_at"
)

// Preferences remembers non-secret conveniences between runs, such as the
// email used for the last successful sign-in.
type Preferences interface {
	// LastEmail returns "" when nothing was remembered yet.
	LastEmail(ctx context.Context) (string, error)
	RememberLogin(ctx context.Context, email string) error
	Forget(ctx context.Context) error
}

type preferencesService struct {
	db  *sql.DB
	now func() time.Time
}

func NewPreferences(db *sql.DB) Preferences {
	return &preferencesService{db: db, now: time.Now}
}

func (p *preferencesService) LastEmail(ctx context.Context) (string, error) {
	v, err := metadata.NewSQLiteRepository(p.db).Get(ctx, keyLastEmail)
	if errors.Is(err, metadata.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// RememberLogin stores the email and the login time in one transaction.
func (p *preferencesService) RememberLogin(ctx context.Context, email string) error {
	err := dbx.WithTx(ctx, p.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyLastEmail, email); err != nil {
			return err
		}
		return repo.Set(ctx, keyLastLoginAt, p.now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return fmt.Errorf("remember login: %w", err)
	}
	return nil
}

func (p *preferencesService) Forget(ctx context.Context) error {
	return dbx.WithTx(ctx, p.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, keyLastEmail); err != nil {
			return err
		}
		return repo.Delete(ctx, keyLastLoginAt)
	})
}

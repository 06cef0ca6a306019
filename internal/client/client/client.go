package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
)

// Client is the backend contract the CipherSafe client core depends on.
// Consumers usually accept a narrower interface with just the calls they
// make.
type Client interface {
	Close() error

	Login(ctx context.Context, email string, password []byte) (string, error)
	Register(ctx context.Context, reg models.Registration) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, reset models.PasswordReset) error
	VerifyToken(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error

	GetPassword(ctx context.Context, req models.DisclosureRequest) ([]byte, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	CreateItem(ctx context.Context, in models.ItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, id int64, in models.ItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, req models.DisclosureRequest) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	ImportItems(ctx context.Context, userID, fileName string, r io.Reader, passphrase []byte) error
	ExportItems(ctx context.Context, userID string, passphrase []byte, w io.Writer) error
	GeneratePassword(ctx context.Context, settings models.PasswordSettings) (string, error)
}

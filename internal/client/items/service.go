package items

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/optimistic"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
)

// API is the item part of the backend contract.
type API interface {
	Lister
	CreateItem(ctx context.Context, in models.ItemInput) (*models.Item, error)
	UpdateItem(ctx context.Context, id int64, in models.ItemInput) (*models.Item, error)
	DeleteItem(ctx context.Context, req models.DisclosureRequest) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	ImportItems(ctx context.Context, userID, fileName string, r io.Reader, passphrase []byte) error
	ExportItems(ctx context.Context, userID string, passphrase []byte, w io.Writer) error
	GeneratePassword(ctx context.Context, settings models.PasswordSettings) (string, error)
}

type Service struct {
	api    API
	cache  *Cache
	notify notify.Notifier
	log    logging.Logger

	mu        sync.Mutex
	favorites map[int64]*optimistic.Toggle
}

func NewService(api API, n notify.Notifier, log logging.Logger) *Service {
	return &Service{
		api:       api,
		cache:     NewCache(api),
		notify:    n,
		log:       log.With("component", "items"),
		favorites: make(map[int64]*optimistic.Toggle),
	}
}

func (s *Service) Cache() *Cache { return s.cache }

// List returns the item list and brings idle favorite toggles in line with
// the server values.
func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	items, err := s.cache.List(ctx)
	if err != nil {
		s.notify.Error(client.Message(err, "Could not load passwords"))
		return nil, err
	}

	s.mu.Lock()
	for _, it := range items {
		if t, ok := s.favorites[it.ID]; ok {
			t.Sync(it.IsFavorite)
		}
	}
	s.mu.Unlock()
	return items, nil
}

func validateInput(in models.ItemInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", client.ErrValidation)
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("%w: username is required", client.ErrValidation)
	case len(in.Password) == 0:
		return fmt.Errorf("%w: password is required", client.ErrValidation)
	}
	return nil
}

// Create stores a new item. The password in in is wiped before returning.
func (s *Service) Create(ctx context.Context, in models.ItemInput) (*models.Item, error) {
	defer common.WipeByteArray(in.Password)
	if err := validateInput(in); err != nil {
		s.notify.Error(client.Message(err, ""))
		return nil, err
	}

	item, err := s.api.CreateItem(ctx, in)
	if err != nil {
		s.notify.Error(client.Message(err, "Could not save the password"))
		return nil, err
	}
	s.cache.Invalidate()
	s.notify.Success("Password saved")
	return item, nil
}

// Update replaces an item. The password in in is wiped before returning.
func (s *Service) Update(ctx context.Context, id int64, in models.ItemInput) (*models.Item, error) {
	defer common.WipeByteArray(in.Password)
	if err := validateInput(in); err != nil {
		s.notify.Error(client.Message(err, ""))
		return nil, err
	}

	item, err := s.api.UpdateItem(ctx, id, in)
	if err != nil {
		s.notify.Error(client.Message(err, "Could not update the password"))
		return nil, err
	}
	s.cache.Invalidate()
	s.notify.Success("Password updated")
	return item, nil
}

// Delete removes an item after re-authenticating with the account
// password, the same way a disclosure does.
func (s *Service) Delete(ctx context.Context, id int64, email string, password []byte) error {
	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		err := fmt.Errorf("%w: email and password are required", client.ErrValidation)
		s.notify.Error(client.Message(err, ""))
		return err
	}

	req := models.DisclosureRequest{ItemID: id, AccountEmail: email, AccountPassword: append([]byte(nil), password...)}
	err := s.api.DeleteItem(ctx, req)
	common.WipeByteArray(req.AccountPassword)
	if err != nil {
		s.notify.Error(client.Message(err, "Could not delete the password"))
		return err
	}

	s.mu.Lock()
	if t, ok := s.favorites[id]; ok {
		t.Dispose()
		delete(s.favorites, id)
	}
	s.mu.Unlock()

	s.cache.Invalidate()
	s.notify.Success("Password deleted")
	return nil
}

// Favorite returns the row toggle for item, creating it from the listed
// value on first use.
func (s *Service) Favorite(item models.Item) *optimistic.Toggle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.favorites[item.ID]
	if !ok {
		t = optimistic.NewToggle(item.IsFavorite)
		s.favorites[item.ID] = t
	}
	return t
}

// ToggleFavorite flips the row toggle optimistically. On success the list
// is refetched; on failure the toggle shows its previous value again.
func (s *Service) ToggleFavorite(ctx context.Context, item models.Item) error {
	t := s.Favorite(item)
	err := t.Flip(ctx, func(ctx context.Context, v bool) error {
		return s.api.SetFavorite(ctx, item.ID, v)
	})
	if err != nil {
		s.log.Info(ctx, "favorite update failed", "item_id", item.ID, "error", err)
		s.notify.Error(client.Message(err, "Could not update favorite"))
		return err
	}
	s.cache.Invalidate()
	return nil
}

// Import uploads an encrypted export file and refetches the list.
func (s *Service) Import(ctx context.Context, userID, fileName string, r io.Reader, passphrase []byte) error {
	if len(passphrase) == 0 {
		err := fmt.Errorf("%w: passphrase is required", client.ErrValidation)
		s.notify.Error(client.Message(err, ""))
		return err
	}
	if err := s.api.ImportItems(ctx, userID, fileName, r, passphrase); err != nil {
		s.notify.Error(client.Message(err, "Import failed"))
		return err
	}
	s.cache.Invalidate()
	s.notify.Success("Passwords imported")
	return nil
}

// Export writes the encrypted export file to w.
func (s *Service) Export(ctx context.Context, userID string, passphrase []byte, w io.Writer) error {
	if len(passphrase) == 0 {
		err := fmt.Errorf("%w: passphrase is required", client.ErrValidation)
		s.notify.Error(client.Message(err, ""))
		return err
	}
	if err := s.api.ExportItems(ctx, userID, passphrase, w); err != nil {
		s.notify.Error(client.Message(err, "Export failed"))
		return err
	}
	s.notify.Success("Passwords exported")
	return nil
}

// GeneratePassword asks the backend for a random password.
func (s *Service) GeneratePassword(ctx context.Context, settings models.PasswordSettings) (string, error) {
	pw, err := s.api.GeneratePassword(ctx, settings)
	if err != nil {
		s.notify.Error(client.Message(err, "Could not generate a password"))
		return "", err
	}
	return pw, nil
}

// Reset drops cached state when the session ends.
func (s *Service) Reset() {
	s.mu.Lock()
	for id, t := range s.favorites {
		t.Dispose()
		delete(s.favorites, id)
	}
	s.mu.Unlock()
	s.cache.Clear()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/disclosure"
	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
)

// writeClipboard is a test seam for the system clipboard.
var writeClipboard = clipboard.WriteAll

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func parseID(args []string, cmd string) (int64, error) {
	if len(args) == 0 {
		return 0, usage(cmd + " <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usage(cmd + " <id>")
	}
	return id, nil
}

// findItem looks id up in the (cached) list.
func (a *App) findItem(ctx context.Context, id int64) (models.Item, error) {
	list, err := a.items.List(ctx)
	if err != nil {
		return models.Item{}, err
	}
	for _, it := range list {
		if it.ID == id {
			return it, nil
		}
	}
	return models.Item{}, fmt.Errorf("no password with id %d", id)
}

func (a *App) List(ctx context.Context) error {
	var list []models.Item
	err := notify.WithSpinner(a.out, "Loading", func() (err error) {
		list, err = a.items.List(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No passwords stored yet, use 'add'")
		return nil
	}
	for _, it := range list {
		fmt.Fprintln(a.out, it)
	}
	return nil
}

// inputItem prompts for the item fields, using cur as defaults.
func (a *App) inputItem(ctx context.Context, cur models.Item) (models.ItemInput, error) {
	in := models.ItemInput{IsFavorite: cur.IsFavorite}
	var err error
	if in.Title, err = getTextOr(a.reader, "Title", cur.Title, a.out); err != nil {
		return in, err
	}
	if in.URL, err = getTextOr(a.reader, "URL", cur.URL, a.out); err != nil {
		return in, err
	}
	if in.Username, err = getTextOr(a.reader, "Username", cur.Username, a.out); err != nil {
		return in, err
	}
	if in.Password, err = getPassword(a.out, "Password (empty to generate)"); err != nil {
		return in, err
	}
	if len(in.Password) == 0 {
		pw, err := a.items.GeneratePassword(ctx, models.DefaultPasswordSettings())
		if err != nil {
			return in, err
		}
		in.Password = []byte(pw)
		a.notify.Info("Generated a " + strconv.Itoa(len(pw)) + "-character password")
	}
	if in.Notes, err = GetMultiline(a.reader, "Notes", a.out); err != nil {
		return in, err
	}
	if in.Notes == "" {
		in.Notes = cur.Notes
	}
	return in, nil
}

// Add stores a new password.
func (a *App) Add(ctx context.Context) error {
	in, err := a.inputItem(ctx, models.Item{})
	if err != nil {
		common.WipeByteArray(in.Password)
		return err
	}
	_, err = a.items.Create(ctx, in)
	return err
}

// Update edits an existing password; Enter keeps the current value.
func (a *App) Update(ctx context.Context, args []string) error {
	id, err := parseID(args, "update")
	if err != nil {
		return err
	}
	cur, err := a.findItem(ctx, id)
	if err != nil {
		return err
	}
	in, err := a.inputItem(ctx, cur)
	if err != nil {
		common.WipeByteArray(in.Password)
		return err
	}
	_, err = a.items.Update(ctx, id, in)
	return err
}

// Delete removes a password after the account password is entered again.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseID(args, "delete")
	if err != nil {
		return err
	}
	it, err := a.findItem(ctx, id)
	if err != nil {
		return err
	}
	if !confirm(a.reader, fmt.Sprintf("Delete %q?", it.Title), a.out) {
		return nil
	}

	s, _ := a.provider.Session()
	email, err := getTextOr(a.reader, "Account email", s.Email, a.out)
	if err != nil {
		return err
	}
	pw, err := getPassword(a.out, "Account password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	return a.items.Delete(ctx, id, email, pw)
}

// Favorite toggles the favorite flag of one password.
func (a *App) Favorite(ctx context.Context, args []string) error {
	id, err := parseID(args, "fav")
	if err != nil {
		return err
	}
	it, err := a.findItem(ctx, id)
	if err != nil {
		return err
	}
	if err := a.items.ToggleFavorite(ctx, it); err != nil {
		return err
	}
	if a.items.Favorite(it).Value() {
		a.notify.Success(fmt.Sprintf("%q added to favorites", it.Title))
	} else {
		a.notify.Success(fmt.Sprintf("%q removed from favorites", it.Title))
	}
	return nil
}

// Show reveals one password. The account password is asked again, and the
// revealed value is wiped when the command returns.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show")
	if err != nil {
		return err
	}
	it, err := a.findItem(ctx, id)
	if err != nil {
		return err
	}
	s, _ := a.provider.Session()

	return disclosure.WithDialog(a.api, id, a.notify, a.log, func(d *disclosure.Dialog) error {
		for d.State() == disclosure.StateRequest {
			email, err := getTextOr(a.reader, "Account email", s.Email, a.out)
			if err != nil {
				return err
			}
			pw, err := getPassword(a.out, "Account password")
			if err != nil {
				return err
			}
			err = notify.WithSpinner(a.out, "Decrypting", func() error {
				return d.Request(ctx, email, pw)
			})
			common.WipeByteArray(pw)
			if err == nil {
				break
			}
			if !errors.Is(err, client.ErrDisclosure) && !errors.Is(err, client.ErrValidation) {
				return err
			}
			if !confirm(a.reader, "Try again?", a.out) {
				return nil
			}
		}

		fmt.Fprintf(a.out, "%s (%s)\n", it.Title, it.Username)
		if err := d.Reveal(func(secret disclosure.Secret) {
			fmt.Fprintln(a.out, "Password:", notify.Highlight.Sprint(string(secret)))
		}); err != nil {
			return err
		}
		if confirm(a.reader, "Copy to clipboard?", a.out) {
			return d.Copy(writeClipboard)
		}
		return nil
	})
}

// Generate prints a server-generated password.
func (a *App) Generate(ctx context.Context, args []string) error {
	settings := models.DefaultPasswordSettings()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return usage("generate [length]")
		}
		settings.Length = n
	}
	pw, err := a.items.GeneratePassword(ctx, settings)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, notify.Highlight.Sprint(pw))
	return nil
}

func (a *App) askPassphrase() ([]byte, error) {
	return getPassword(a.out, "Export passphrase")
}

// Import uploads an encrypted export file.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("import <file>")
	}
	s, _ := a.provider.Session()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	pass, err := a.askPassphrase()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	return notify.WithSpinner(a.out, "Importing", func() error {
		return a.items.Import(ctx, s.SubjectID, filepath.Base(args[0]), f, pass)
	})
}

// Export writes an encrypted export file. A failed export leaves no file
// behind.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("export <file>")
	}
	s, _ := a.provider.Session()

	pass, err := a.askPassphrase()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	err = notify.WithSpinner(a.out, "Exporting", func() error {
		return a.items.Export(ctx, s.SubjectID, pass, f)
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(args[0])
	}
	return err
}

func (a *App) WhoAmI(ctx context.Context) error {
	s, ok := a.provider.Session()
	if !ok {
		return errors.New("not signed in")
	}
	fmt.Fprintf(a.out, "%s <%s> id=%s\n", s.Username, s.Email, s.SubjectID)
	if !s.Expiry.IsZero() {
		fmt.Fprintf(a.out, "session expires %s\n", s.Expiry.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Logout ends the session. The client returns to the login screen even if
// the server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.provider.Logout(ctx); err != nil {
		a.notify.Info("Signed out locally; the server could not be reached")
		return nil
	}
	a.notify.Success("Signed out")
	return nil
}

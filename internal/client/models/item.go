package models

import (
	"fmt"
	"time"
)

// Item is a stored credential as listed by the backend. It never carries
// the item password.
type Item struct {
	ID         int64
	OwnerID    int64
	Title      string
	URL        string
	Username   string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsDeleted  bool
	IsFavorite bool
}

func (i Item) String() string {
	fav := " "
	if i.IsFavorite {
		fav = "*"
	}
	return fmt.Sprintf("%s %-6d %-24s %-24s %s", fav, i.ID, i.Title, i.Username, i.URL)
}

// ItemInput is the body of create and update calls. Password is the item
// secret the user types in; it is sent once and never read back.
type ItemInput struct {
	Title      string
	URL        string
	Username   string
	Password   []byte
	Notes      string
	IsDeleted  bool
	IsFavorite bool
}

// PasswordSettings tunes the server-side password generator.
type PasswordSettings struct {
	Length           int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeDigits    bool
	IncludeSpecial   bool
}

// DefaultPasswordSettings mirrors the generator defaults of the web client.
func DefaultPasswordSettings() PasswordSettings {
	return PasswordSettings{
		Length:           16,
		IncludeUppercase: true,
		IncludeLowercase: true,
		IncludeDigits:    true,
		IncludeSpecial:   true,
	}
}

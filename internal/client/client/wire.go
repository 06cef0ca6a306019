package client

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/timex"
)

// JSON bodies as the backend spells them.

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailBody struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Email string `json:"email"`
}

type registerBody struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type verifyOTPBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordBody struct {
	Token       string `json:"token"`
	ID          string `json:"id"`
	NewPassword string `json:"new_password"`
}

type sessionPayload struct {
	Sub      json.RawMessage `json:"sub"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Exp      json.Number     `json:"exp"`
}

type verifyTokenResponse struct {
	Payload *sessionPayload `json:"payload"`
}

func (p *sessionPayload) toModel() *models.Session {
	s := &models.Session{
		SubjectID: rawString(p.Sub),
		Email:     p.Email,
		Username:  p.Username,
	}
	if secs, err := p.Exp.Int64(); err == nil && secs > 0 {
		s.Expiry = time.Unix(secs, 0).UTC()
	}
	return s
}

// rawString accepts both "42" and 42.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type disclosureBody struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ServiceID string `json:"serviceID"`
}

func newDisclosureBody(req models.DisclosureRequest) disclosureBody {
	return disclosureBody{
		Email:     req.AccountEmail,
		Password:  string(req.AccountPassword),
		ServiceID: strconv.FormatInt(req.ItemID, 10),
	}
}

type disclosureResponse struct {
	ID       int64  `json:"id"`
	Password string `json:"password"`
}

type itemBody struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Username   string     `json:"username"`
	Notes      string     `json:"notes"`
	CreatedAt  timex.Time `json:"created_at"`
	UpdatedAt  timex.Time `json:"updated_at"`
	IsDeleted  bool       `json:"is_deleted"`
	IsFavorite bool       `json:"is_Favrout"`
}

func (b itemBody) toModel() models.Item {
	return models.Item{
		ID:         b.ID,
		OwnerID:    b.UserID,
		Title:      b.Title,
		URL:        b.URL,
		Username:   b.Username,
		Notes:      b.Notes,
		CreatedAt:  b.CreatedAt.Time,
		UpdatedAt:  b.UpdatedAt.Time,
		IsDeleted:  b.IsDeleted,
		IsFavorite: b.IsFavorite,
	}
}

type itemInputBody struct {
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Notes      string `json:"notes,omitempty"`
	IsDeleted  bool   `json:"is_deleted"`
	IsFavorite bool   `json:"is_Favrout"`
}

func newItemInputBody(in models.ItemInput) itemInputBody {
	return itemInputBody{
		Title:      in.Title,
		URL:        in.URL,
		Username:   in.Username,
		Password:   string(in.Password),
		Notes:      in.Notes,
		IsDeleted:  in.IsDeleted,
		IsFavorite: in.IsFavorite,
	}
}

type favoriteBody struct {
	IsFavorite bool `json:"is_Favrout"`
}

type generateBody struct {
	Length           int  `json:"length"`
	IncludeUppercase bool `json:"include_uppercase"`
	IncludeLowercase bool `json:"include_lowercase"`
	IncludeDigits    bool `json:"include_digits"`
	IncludeSpecial   bool `json:"include_special"`
}

type generateResponse struct {
	Password string `json:"password"`
}

// errorBody is the backend error envelope. Detail is usually a string but
// request validation failures carry a list of {msg: ...} objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

func (b errorBody) detailText() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(b.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

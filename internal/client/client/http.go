package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/net/publicsuffix"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// HTTPClient implements Client over JSON/HTTP. The session cookie set by
// verify-otp is stored in the client's cookie jar and replayed on every
// call; it is never inspected here.
type HTTPClient struct {
	baseURL *url.URL
	hc      *http.Client
	log     logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL with a per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse server url: unsupported scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Jar = jar
	hc.Timeout = timeout

	return &HTTPClient{baseURL: u, hc: hc, log: log.With("component", "http-client")}, nil
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// send executes req and converts transport failures and non-2xx statuses
// into the error taxonomy. On success the caller owns resp.Body.
func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	reqID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, reqID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn(req.Context(), "request failed", "method", req.Method, "path", req.URL.Path, "request_id", reqID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.log.Debug(req.Context(), "request done",
		"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}
	apiErr.Detail = body.detailText()
	apiErr.code = body.Code
	return apiErr
}

// Login checks the credentials and triggers an OTP email. It returns the
// email the server confirmed, or "" when the response carries none.
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (string, error) {
	var out loginResponse
	in := credentialsBody{Email: email, Password: string(password)}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Email), nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) error {
	in := registerBody{
		Email:       reg.Email,
		Username:    reg.Username,
		PhoneNumber: reg.PhoneNumber,
		Password:    string(reg.Password),
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/register", in, nil)
}

// VerifyOTP submits the code. On success the backend sets the session
// cookie. Failures carry one of the OTP kinds.
func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/verify-otp", verifyOTPBody{Email: email, OTP: code}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		classifyOTP(apiErr, apiErr.code)
	}
	return err
}

func (c *HTTPClient) ResendOTP(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/resend-otp", emailBody{Email: email}, nil)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/forgot-password", emailBody{Email: email}, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, reset models.PasswordReset) error {
	in := resetPasswordBody{Token: reset.Token, ID: reset.UserID, NewPassword: string(reset.NewPassword)}
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", in, nil)
}

// VerifyToken validates the ambient session cookie and returns the session
// projection.
func (c *HTTPClient) VerifyToken(ctx context.Context) (*models.Session, error) {
	var out verifyTokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify-token", struct{}{}, &out); err != nil {
		return nil, err
	}
	if out.Payload == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Detail: "session payload missing", Kind: ErrUnauthorized}
	}
	return out.Payload.toModel(), nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
}

// GetPassword re-authenticates with the account password and returns one
// decrypted item password. The caller owns and must wipe the result.
func (c *HTTPClient) GetPassword(ctx context.Context, req models.DisclosureRequest) ([]byte, error) {
	var out disclosureResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/get-password", newDisclosureBody(req), &out); err != nil {
		return nil, err
	}
	return []byte(out.Password), nil
}

func (c *HTTPClient) ListItems(ctx context.Context) ([]models.Item, error) {
	var out []itemBody
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/passwords-list", nil, &out); err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(out))
	for _, b := range out {
		items = append(items, b.toModel())
	}
	return items, nil
}

func (c *HTTPClient) CreateItem(ctx context.Context, in models.ItemInput) (*models.Item, error) {
	var out itemBody
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/create-password", newItemInputBody(in), &out); err != nil {
		return nil, err
	}
	item := out.toModel()
	return &item, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, id int64, in models.ItemInput) (*models.Item, error) {
	var out itemBody
	path := "/api/v1/update-password/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, http.MethodPut, path, newItemInputBody(in), &out); err != nil {
		return nil, err
	}
	item := out.toModel()
	return &item, nil
}

// DeleteItem soft-deletes an item. Like disclosure it requires the account
// password.
func (c *HTTPClient) DeleteItem(ctx context.Context, req models.DisclosureRequest) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/delete-password", newDisclosureBody(req), nil)
}

// SetFavorite sends the target favorite flag for one item.
func (c *HTTPClient) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	path := "/api/v1/toggle-favorite/" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, http.MethodPut, path, favoriteBody{IsFavorite: favorite}, nil)
}

func (c *HTTPClient) GeneratePassword(ctx context.Context, s models.PasswordSettings) (string, error) {
	in := generateBody{
		Length:           s.Length,
		IncludeUppercase: s.IncludeUppercase,
		IncludeLowercase: s.IncludeLowercase,
		IncludeDigits:    s.IncludeDigits,
		IncludeSpecial:   s.IncludeSpecial,
	}
	var out generateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/encryption/generate-secure-password", in, &out); err != nil {
		return "", err
	}
	return out.Password, nil
}

// ImportItems uploads an encrypted export file as multipart form data.
func (c *HTTPClient) ImportItems(ctx context.Context, userID, fileName string, r io.Reader, passphrase []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("build import form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	if err := mw.WriteField("passphrase", string(passphrase)); err != nil {
		return fmt.Errorf("build import form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("build import form: %w", err)
	}

	target := c.endpoint("/api/v1/encryption/import-passwords", url.Values{"user_id": {userID}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ExportItems streams the encrypted export file into w.
func (c *HTTPClient) ExportItems(ctx context.Context, userID string, passphrase []byte, w io.Writer) error {
	q := url.Values{"user_id": {userID}, "passphrase": {string(passphrase)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/v1/encryption/export-passwords", q), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Package backendfake is an in-memory stand-in for the CipherSafe backend.
// It serves the same JSON/HTTP contract on a chi router and is meant for
// tests and local demos only.
package backendfake

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	otpValidity     = 60 * time.Second
	otpMaxRetries   = 3
	sessionValidity = 1300 * time.Second
	resetValidity   = 15 * time.Minute
)

type user struct {
	id           int64
	email        string
	username     string
	phone        string
	passwordHash []byte

	resetTokenHash []byte
	resetExpiresAt time.Time
}

type otpEntry struct {
	code      string
	expiresAt time.Time
	retries   int
	userID    int64
}

type item struct {
	id         int64
	ownerID    int64
	title      string
	url        string
	username   string
	password   string
	notes      string
	createdAt  time.Time
	updatedAt  time.Time
	isDeleted  bool
	isFavorite bool
}

type failure struct {
	status int
	detail string
}

// Server holds the fake backend state.
type Server struct {
	mu sync.Mutex

	secret []byte
	now    func() time.Time

	users   map[string]*user
	nextUID int64
	otps    map[string]*otpEntry
	items   map[int64]*item
	nextIID int64

	failures map[string][]failure
	calls    map[string]int

	mail func(to, body string)
}

type Option func(*Server)

// WithMailer receives the messages the backend would email: passcodes and
// reset links.
func WithMailer(send func(to, body string)) Option {
	return func(s *Server) { s.mail = send }
}

// WithClock replaces time.Now, e.g. to expire OTPs in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:   common.GenerateRandByteArray(32),
		now:      time.Now,
		users:    make(map[string]*user),
		otps:     make(map[string]*otpEntry),
		items:    make(map[int64]*item),
		failures: make(map[string][]failure),
		calls:    make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID, s.record, s.injectFailures)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Post("/verify-otp", s.verifyOTP)
		r.Post("/resend-otp", s.resendOTP)
		r.Post("/forgot-password", s.forgotPassword)
		r.Post("/reset-password", s.resetPassword)
		r.Post("/verify-token", s.verifyToken)
		r.Post("/logout", s.logout)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/encryption/generate-secure-password", s.generatePassword)
		r.Get("/encryption/export-passwords", s.exportItems)
		r.Post("/encryption/import-passwords", s.importItems)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Get("/passwords-list", s.listItems)
			r.Post("/create-password", s.createItem)
			r.Put("/update-password/{id}", s.updateItem)
			r.Delete("/delete-password", s.deleteItem)
			r.Post("/get-password", s.getPassword)
			r.Put("/toggle-favorite/{id}", s.toggleFavorite)
		})
	})
	return r
}

// FailNext makes the next call to path answer with status and detail.
// Queued failures are consumed in order.
func (s *Server) FailNext(path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failure{status: status, detail: detail})
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		queue := s.failures[r.URL.Path]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[r.URL.Path] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) send(to, body string) {
	if s.mail != nil {
		s.mail(to, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomFrom(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range out {
		k, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[k.Int64()]
	}
	return string(out), nil
}

package backendfake

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
}

type ctxKey struct{}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(email, username, phone, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := normEmail(email)
	if _, ok := s.users[key]; ok {
		return 0, errors.New("user exists")
	}
	s.nextUID++
	s.users[key] = &user{id: s.nextUID, email: key, username: username, phone: phone, passwordHash: hash}
	return s.nextUID, nil
}

// OTPFor returns the code last sent to email.
func (s *Server) OTPFor(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.otps[normEmail(email)]
	if !ok {
		return "", false
	}
	return e.code, true
}

// ResetTokenFor issues a password reset token for email as the reset email
// would carry it, and returns the token with the user id.
func (s *Server) ResetTokenFor(email string) (token, userID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[normEmail(email)]
	if !found {
		return "", "", false
	}
	token, err := common.MakeRandHexString(16)
	if err != nil {
		return "", "", false
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		return "", "", false
	}
	u.resetTokenHash = hash
	u.resetExpiresAt = s.now().Add(resetValidity)
	return token, strconv.FormatInt(u.id, 10), true
}

func (s *Server) checkCredentials(email, password string) (*user, int, string) {
	s.mu.Lock()
	u, ok := s.users[normEmail(email)]
	s.mu.Unlock()
	if !ok {
		return nil, http.StatusUnauthorized, "Invalid credentials"
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, http.StatusUnauthorized, "Invalid credentials"
	}
	return u, 0, ""
}

func (s *Server) issueOTP(u *user) string {
	s.mu.Lock()
	if e, ok := s.otps[u.email]; ok && s.now().Before(e.expiresAt) {
		s.mu.Unlock()
		return "An OTP has already been sent. Please check your email."
	}
	code, err := common.MakeRandDigits(common.OTPLength)
	if err != nil {
		code = "000000"
	}
	s.otps[u.email] = &otpEntry{code: code, expiresAt: s.now().Add(otpValidity), userID: u.id}
	s.mu.Unlock()

	s.send(u.email, "Your one-time passcode is "+code)
	return "OTP sent successfully!"
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	u, status, detail := s.checkCredentials(in.Email, in.Password)
	if u == nil {
		writeError(w, status, detail)
		return
	}
	msg := s.issueOTP(u)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg, "email": u.email})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		PhoneNumber string `json:"phone_number"`
		Password    string `json:"password"`
	}
	if !decode(r, &in) || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if _, err := s.AddUser(in.Email, in.Username, in.PhoneNumber, in.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Username, email, or phone number already registered")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	u, ok := s.users[normEmail(in.Email)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": s.issueOTP(u)})
}

// ExpireOTP makes the pending code for email expire immediately.
func (s *Server) ExpireOTP(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.otps[normEmail(email)]; ok {
		e.expiresAt = s.now().Add(-time.Second)
	}
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	key := normEmail(in.Email)

	s.mu.Lock()
	e, ok := s.otps[key]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "OTP not found or expired")
		return
	}
	if s.now().After(e.expiresAt) {
		delete(s.otps, key)
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "OTP expired")
		return
	}
	if e.retries >= otpMaxRetries {
		delete(s.otps, key)
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, "Too many failed attempts. Please request a new OTP.")
		return
	}
	if in.OTP != e.code {
		e.retries++
		left := otpMaxRetries - e.retries
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Invalid OTP. You have "+strconv.Itoa(left)+" attempts remaining.")
		return
	}
	delete(s.otps, key)
	u := s.users[key]
	s.mu.Unlock()

	token, err := s.signSession(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionValidity / time.Second),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified successfully!"})
}

func (s *Server) signSession(u *user) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.id, 10),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(sessionValidity)),
		},
		Email:    u.email,
		Username: u.username,
	})
	return token.SignedString(s.secret)
}

func (s *Server) parseSession(r *http.Request) (*sessionClaims, error) {
	ck, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(ck.Value, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (s *Server) verifyToken(w http.ResponseWriter, r *http.Request) {
	claims, err := s.parseSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token not found in cookies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Token is valid",
		"payload": map[string]any{
			"sub":      claims.Subject,
			"email":    claims.Email,
			"username": claims.Username,
			"exp":      claims.ExpiresAt.Unix(),
		},
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: common.SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	token, id, ok := s.ResetTokenFor(in.Email)
	if !ok {
		writeError(w, http.StatusBadRequest, "If the email exists, a reset link has been sent")
		return
	}
	s.send(normEmail(in.Email), "Reset your password: /reset-password?token="+token+"&id="+id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the email exists, a reset link has been sent"})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token       string `json:"token"`
		ID          string `json:"id"`
		NewPassword string `json:"new_password"`
	}
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	id, _ := strconv.ParseInt(in.ID, 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	var u *user
	for _, candidate := range s.users {
		if candidate.id == id {
			u = candidate
			break
		}
	}
	if u == nil || u.resetTokenHash == nil || bcrypt.CompareHashAndPassword(u.resetTokenHash, []byte(in.Token)) != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	if s.now().After(u.resetExpiresAt) {
		writeError(w, http.StatusBadRequest, "Token has expired")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid password")
		return
	}
	u.passwordHash = hash
	u.resetTokenHash = nil
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.parseSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		uid, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token or missing user ID")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

package backendfake

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type itemJSON struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Username   string `json:"username"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	IsDeleted  bool   `json:"is_deleted"`
	IsFavorite bool   `json:"is_Favrout"`
}

type itemInput struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Notes      string `json:"notes"`
	IsDeleted  bool   `json:"is_deleted"`
	IsFavorite bool   `json:"is_Favrout"`
}

// exportEntry is one record of the export file.
type exportEntry struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Notes    string `json:"notes"`
}

// exportFile stands in for the encrypted export. Only the passphrase check
// is emulated.
type exportFile struct {
	PassphraseHash []byte        `json:"passphrase_hash"`
	Entries        []exportEntry `json:"entries"`
}

func (it *item) toJSON() itemJSON {
	return itemJSON{
		ID:         it.id,
		UserID:     it.ownerID,
		Title:      it.title,
		URL:        it.url,
		Username:   it.username,
		Notes:      it.notes,
		CreatedAt:  it.createdAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  it.updatedAt.UTC().Format(time.RFC3339Nano),
		IsDeleted:  it.isDeleted,
		IsFavorite: it.isFavorite,
	}
}

// ItemPassword returns the stored password of an item, for assertions.
func (s *Server) ItemPassword(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return "", false
	}
	return it.password, true
}

func (s *Server) addItem(owner int64, in itemInput) *item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIID++
	now := s.now()
	it := &item{
		id:         s.nextIID,
		ownerID:    owner,
		title:      in.Title,
		url:        in.URL,
		username:   in.Username,
		password:   in.Password,
		notes:      in.Notes,
		createdAt:  now,
		updatedAt:  now,
		isFavorite: in.IsFavorite,
	}
	s.items[it.id] = it
	return it
}

// ownedItem returns a live item of owner. Callers hold s.mu.
func (s *Server) ownedItem(owner, id int64) (*item, bool) {
	it, ok := s.items[id]
	if !ok || it.ownerID != owner || it.isDeleted {
		return nil, false
	}
	return it, true
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	s.mu.Lock()
	out := make([]itemJSON, 0, len(s.items))
	for id := int64(1); id <= s.nextIID; id++ {
		if it, ok := s.ownedItem(uid, id); ok {
			out = append(out, it.toJSON())
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if !decode(r, &in) || in.Title == "" || in.Username == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "title, username and password are required")
		return
	}
	it := s.addItem(userID(r), in)
	s.mu.Lock()
	out := it.toJSON()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func itemIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(r)
	var in itemInput
	if !ok || !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.ownedItem(userID(r), id)
	if !found {
		writeError(w, http.StatusNotFound, "Password entry not found.")
		return
	}
	it.title = in.Title
	it.url = in.URL
	it.username = in.Username
	if in.Password != "" {
		it.password = in.Password
	}
	it.notes = in.Notes
	it.isFavorite = in.IsFavorite
	it.updatedAt = s.now()
	writeJSON(w, http.StatusOK, it.toJSON())
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	var in struct {
		IsFavorite *bool `json:"is_Favrout"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()
	it, found := s.ownedItem(userID(r), id)
	if !found {
		writeError(w, http.StatusNotFound, "Password entry not found.")
		return
	}
	if in.IsFavorite != nil {
		it.isFavorite = *in.IsFavorite
	} else {
		it.isFavorite = !it.isFavorite
	}
	it.updatedAt = s.now()
	writeJSON(w, http.StatusOK, it.toJSON())
}

type reauthBody struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ServiceID string `json:"serviceID"`
}

// reauth checks the account password and resolves the addressed item.
func (s *Server) reauth(w http.ResponseWriter, r *http.Request) (*item, bool) {
	var in reauthBody
	if !decode(r, &in) {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return nil, false
	}
	u, status, detail := s.checkCredentials(in.Email, in.Password)
	if u == nil || u.id != userID(r) {
		if u != nil {
			status, detail = http.StatusUnauthorized, "Invalid credentials"
		}
		writeError(w, status, detail)
		return nil, false
	}
	id, err := strconv.ParseInt(in.ServiceID, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Password entry not found.")
		return nil, false
	}

	s.mu.Lock()
	it, found := s.ownedItem(u.id, id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Password entry not found.")
		return nil, false
	}
	return it, true
}

func (s *Server) getPassword(w http.ResponseWriter, r *http.Request) {
	it, ok := s.reauth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := map[string]any{"id": it.id, "password": it.password}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.reauth(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	it.isDeleted = true
	it.updatedAt = s.now()
	id := it.id
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Password entry with ID " + strconv.FormatInt(id, 10) + " marked as deleted successfully.",
	})
}

func (s *Server) generatePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Length           int  `json:"length"`
		IncludeUppercase bool `json:"include_uppercase"`
		IncludeLowercase bool `json:"include_lowercase"`
		IncludeDigits    bool `json:"include_digits"`
		IncludeSpecial   bool `json:"include_special"`
	}
	if !decode(r, &in) || in.Length < 8 || in.Length > 64 {
		writeError(w, http.StatusUnprocessableEntity, "length must be between 8 and 64")
		return
	}
	var pool strings.Builder
	if in.IncludeUppercase {
		pool.WriteString("ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	if in.IncludeLowercase {
		pool.WriteString("abcdefghijklmnopqrstuvwxyz")
	}
	if in.IncludeDigits {
		pool.WriteString("0123456789")
	}
	if in.IncludeSpecial {
		pool.WriteString("!@#$%^&*()-_=+[]{}")
	}
	if pool.Len() == 0 {
		writeError(w, http.StatusBadRequest, "At least one character type must be selected.")
		return
	}
	pw, err := randomFrom(pool.String(), in.Length)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generator failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": pw})
}

func queryUserID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	return id, err == nil
}

func (s *Server) exportItems(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUserID(r)
	passphrase := r.URL.Query().Get("passphrase")
	if !ok || passphrase == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id and passphrase are required")
		return
	}

	s.mu.Lock()
	var entries []exportEntry
	for id := int64(1); id <= s.nextIID; id++ {
		if it, found := s.ownedItem(uid, id); found {
			entries = append(entries, exportEntry{
				Title: it.title, URL: it.url, Username: it.username, Password: it.password, Notes: it.notes,
			})
		}
	}
	s.mu.Unlock()
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "No password entries found for export.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid passphrase")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="passwords_export.enc"`)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(exportFile{PassphraseHash: hash, Entries: entries})
}

func (s *Server) importItems(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUserID(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import passwords: invalid form")
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import passwords: missing file")
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import passwords: unreadable file")
		return
	}

	var file exportFile
	if err := json.Unmarshal(raw, &file); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import passwords: corrupt file")
		return
	}
	if bcrypt.CompareHashAndPassword(file.PassphraseHash, []byte(r.FormValue("passphrase"))) != nil {
		writeError(w, http.StatusBadRequest, "Failed to import passwords: wrong passphrase")
		return
	}
	for _, e := range file.Entries {
		s.addItem(uid, itemInput{Title: e.Title, URL: e.URL, Username: e.Username, Password: e.Password, Notes: e.Notes})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Passwords imported successfully"})
}

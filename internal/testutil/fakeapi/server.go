// Package fakeapi is an in-memory explorer backend for tests. It speaks the
// same JSON as the real service and records every request it sees.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/common"
)

const pageSize = 10

var signingKey = []byte("fakeapi-secret")

// Request is one recorded call.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
}

type user struct {
	id       int64
	email    string
	password string
	role     string
}

type entry struct {
	id        int64
	typ       models.EntryType
	owner     string
	text      string
	results   []models.SearchItem
	images    []models.Image
	createdAt time.Time
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	tokens   map[string]string
	entries  []*entry
	nextID   int64
	requests []Request
	forced   map[string]int

	// SearchHook, when set, runs before /search answers. Tests use it to hold
	// a response back.
	SearchHook func(query string)
	// ImageHook is the /image counterpart of SearchHook.
	ImageHook func(prompt string)
}

func New() *Server {
	s := &Server{
		users:  make(map[string]*user),
		tokens: make(map[string]string),
		forced: make(map[string]int),
		nextID: 1,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.me)
		r.Post("/search", s.search)
		r.Post("/image", s.image)
		r.Post("/dashboard", s.save)
		r.Get("/dashboard", s.list)
		r.Delete("/dashboard/cleanup-all", s.cleanup)
		r.Get("/dashboard/{id}", s.detail)
		r.Delete("/dashboard/{id}", s.delete)
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(email, password, role)
}

func (s *Server) addUserLocked(email, password, role string) *user {
	u := &user{id: int64(len(s.users) + 1), email: email, password: password, role: role}
	s.users[email] = u
	return u
}

// IssueToken returns a valid token for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[email]
	if u == nil {
		u = s.addUserLocked(email, "", "user")
	}
	return s.issueLocked(u)
}

func (s *Server) issueLocked(u *user) string {
	claims := jwt.MapClaims{
		"sub":  u.email,
		"role": u.role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"jti":  uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.tokens[signed] = u.email
	return signed
}

// RevokeAll invalidates every issued token, as a backend restart would.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.tokens = make(map[string]string)
	s.mu.Unlock()
}

// Force makes every "METHOD /path" request answer with status.
func (s *Server) Force(method, path string, status int) {
	s.mu.Lock()
	s.forced[method+" "+path] = status
	s.mu.Unlock()
}

// Requests returns a copy of everything recorded so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent recorded call matching method and path.
func (s *Server) LastRequest(method, path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return Request{}, false
}

// SeedSearch stores a saved search for email and returns its id.
func (s *Server) SeedSearch(email, query string, results []models.SearchItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntryLocked(&entry{typ: models.EntryTypeSearch, owner: email, text: query, results: results})
}

// SeedImage stores a saved image prompt for email and returns its id.
func (s *Server) SeedImage(email, prompt string, images []models.Image) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntryLocked(&entry{typ: models.EntryTypeImage, owner: email, text: prompt, images: images})
}

// EntryCount reports how many entries of type t email owns.
func (s *Server) EntryCount(email string, t models.EntryType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.owner == email && e.typ == t {
			n++
		}
	}
	return n
}

func (s *Server) addEntryLocked(e *entry) int64 {
	e.id = s.nextID
	s.nextID++
	e.createdAt = time.Now().Add(time.Duration(e.id) * time.Millisecond)
	s.entries = append(s.entries, e)
	return e.id
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get(common.AuthorizationHeaderName),
		})
		status, forced := s.forced[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if forced {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)
		s.mu.Lock()
		email, known := s.tokens[token]
		s.mu.Unlock()
		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		r.Header.Set("X-Fake-User", email)
		next.ServeHTTP(w, r)
	})
}

func owner(r *http.Request) string {
	return r.Header.Get("X-Fake-User")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "invalid body"}}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[in.Email]
	if u == nil || u.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: s.issueLocked(u), Role: u.role})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "email and password are required"}}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	u := s.addUserLocked(in.Email, in.Password, "user")
	writeJSON(w, http.StatusCreated, models.User{ID: u.id, Email: u.email, Role: u.role})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[owner(r)]
	s.mu.Unlock()
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, models.User{ID: u.id, Email: u.email, Role: u.role})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var in models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	if s.SearchHook != nil {
		s.SearchHook(in.Query)
	}
	results := []models.SearchItem{
		{Title: "About " + in.Query, URL: "http://x/" + in.Query, Summary: "Everything on " + in.Query},
	}
	writeJSON(w, http.StatusOK, models.SearchResponse{ID: 1, Query: in.Query, Results: results})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	var in models.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	if s.ImageHook != nil {
		s.ImageHook(in.Prompt)
	}
	images := []models.Image{{URL: "https://img.test/" + strings.ReplaceAll(in.Prompt, " ", "-") + ".png"}}
	writeJSON(w, http.StatusOK, models.ImageResponse{ID: 1, Prompt: in.Prompt, Images: images})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Type    models.EntryType    `json:"type"`
		Query   string              `json:"query"`
		Results []models.SearchItem `json:"results"`
		Prompt  string              `json:"prompt"`
		Images  []models.Image      `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	e := &entry{typ: in.Type, owner: owner(r)}
	switch in.Type {
	case models.EntryTypeSearch:
		e.text, e.results = in.Query, in.Results
	case models.EntryTypeImage:
		e.text, e.images = in.Prompt, in.Images
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Unsupported type"})
		return
	}
	s.mu.Lock()
	id := s.addEntryLocked(e)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.SaveResponse{OK: true, ID: id})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = string(models.EntryTypeAll)
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	var matched []*entry
	for _, e := range s.entries {
		if e.owner != owner(r) {
			continue
		}
		if typ != string(models.EntryTypeAll) && string(e.typ) != typ {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.text), q) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].createdAt.After(matched[j].createdAt) })

	totalPages := max(1, (len(matched)+pageSize-1)/pageSize)
	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	items := make([]models.DashboardItem, 0, end-start)
	for _, e := range matched[start:end] {
		items = append(items, e.item())
	}
	writeJSON(w, http.StatusOK, models.DashboardPage{Items: items, Page: page, TotalPages: totalPages})
}

func (e *entry) item() models.DashboardItem {
	it := models.DashboardItem{ID: e.id, Type: e.typ, CreatedAt: e.createdAt.UTC().Format(time.RFC3339Nano)}
	title := e.text
	if title == "" {
		title = "untitled"
	}
	switch e.typ {
	case models.EntryTypeSearch:
		it.Title = "Results for: " + title
		if len(e.results) > 0 {
			snippet := e.results[0].Title
			if snippet == "" {
				snippet = e.results[0].Summary
			}
			it.Snippet = &snippet
		}
	case models.EntryTypeImage:
		it.Title = title
		if len(e.images) > 0 {
			u := e.images[0].URL
			it.ImageURL = &u
		}
	}
	return it
}

func (s *Server) find(r *http.Request) (*entry, int, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, -1, false
	}
	typ := models.EntryType(r.URL.Query().Get("type"))
	for i, e := range s.entries {
		if e.id == id && e.typ == typ && e.owner == owner(r) {
			return e, i, true
		}
	}
	return nil, -1, false
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	e, _, ok := s.find(r)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
		return
	}
	d := models.Detail{ID: e.id, Type: e.typ, CreatedAt: e.createdAt.UTC().Format(time.RFC3339Nano)}
	switch e.typ {
	case models.EntryTypeSearch:
		d.Title, d.Query, d.Results = "Results for: "+e.text, e.text, e.results
	case models.EntryTypeImage:
		d.Title, d.Prompt, d.Images = e.text, e.text, e.images
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, idx, ok := s.find(r)
	if ok {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	var res models.CleanupResult
	s.mu.Lock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.owner == owner(r) && strings.TrimSpace(e.text) == "" {
			if e.typ == models.EntryTypeSearch {
				res.Deleted.Search++
			} else {
				res.Deleted.Image++
			}
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.mu.Unlock()
	res.OK = true
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("fakeapi: encode response: %v", err))
	}
}

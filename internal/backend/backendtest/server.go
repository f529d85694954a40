// Package backendtest runs an in-process catalog backend for tests. It speaks the same REST
// contract as the real backend: Basic auth on every route except registration, admin-only
// user management, and JSON bodies.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/cellar-console/internal/models"
)

const apiPrefix = "/api"

type user struct {
	id       int
	username string
	password string
	roles    []string
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type failure struct {
	status      int
	contentType string
	body        string
}

type Server struct {
	*httptest.Server

	mu            sync.Mutex
	products      map[int]models.Product
	nextProductID int
	users         map[int]user
	nextUserID    int
	failures      map[string]failure
	calls         []string
}

// New starts a backend. Close it with t.Cleanup(s.Close).
func New() *Server {
	s := &Server{
		products:      make(map[int]models.Product),
		nextProductID: 1,
		users:         make(map[int]user),
		nextUserID:    1,
		failures:      make(map[string]failure),
	}

	r := chi.NewRouter()
	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(s.record)
		r.Post("/auth/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.basicAuth)
			r.Get("/auth/userinfo", s.userInfo)
			r.Get("/products", s.listProducts)
			r.Post("/products", s.createProduct)
			r.Get("/products/{id}", s.getProduct)
			r.Put("/products/{id}", s.updateProduct)
			r.Delete("/products/{id}", s.deleteProduct)
			r.Get("/users", s.listUsers)
			r.Delete("/users/{id}", s.deleteUser)
		})
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the value for backend.base_url.
func (s *Server) BaseURL() string {
	return s.URL + apiPrefix
}

func (s *Server) AddUser(username, password string, roles ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = user{id: id, username: username, password: password, roles: roles}
	return id
}

func (s *Server) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextProductID
	s.nextProductID++
	s.products[p.ID] = p
	return p
}

// Products returns the stored products ordered by id.
func (s *Server) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedProducts()
}

// SetPassword changes a user's password, invalidating credentials stored elsewhere.
func (s *Server) SetPassword(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.username == username {
			u.password = password
			s.users[id] = u
		}
	}
}

func (s *Server) HasUser(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

// Fail makes every request to method and path (relative to the API root, e.g. "/users/5")
// answer with status and body. A body starting with { or " is sent as JSON.
func (s *Server) Fail(method, path string, status int, body string) {
	contentType := "text/plain; charset=utf-8"
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "\"") {
		contentType = "application/json"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, contentType: contentType, body: body}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// Calls lists every request received, as "METHOD /path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) CallCount(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == method+" "+path {
			n++
		}
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiPrefix)

		s.mu.Lock()
		s.calls = append(s.calls, key)
		f, failing := s.failures[key]
		s.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", f.contentType)
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		var found *user
		for _, u := range s.users {
			if u.username == username && u.password == password {
				u := u
				found = &u
				break
			}
		}
		s.mu.Unlock()

		if found == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		r = r.WithContext(contextWithUser(r, *found))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid input"})
		return
	}
	if req.Password != req.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"confirmPassword": "Passwords do not match"})
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.username == req.Username {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Username already exists"})
			return
		}
	}
	s.mu.Unlock()

	s.AddUser(req.Username, req.Password, "USER")
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	writeJSON(w, http.StatusOK, models.UserInfo{Username: u.username, Roles: u.roles})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	products := s.sortedProducts()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	s.mu.Lock()
	p, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid input"})
		return
	}
	if strings.TrimSpace(p.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"name": "must not be blank"})
		return
	}
	writeJSON(w, http.StatusCreated, s.AddProduct(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid input"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	p.ID = id
	s.products[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	delete(s.products, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(userFrom(r)) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	s.mu.Lock()
	accounts := make([]models.Account, 0, len(s.users))
	for _, u := range s.users {
		roles := make([]models.Role, len(u.roles))
		for i, name := range u.roles {
			roles[i] = models.Role{Name: name}
		}
		accounts = append(accounts, models.Account{ID: u.id, Username: u.username, Roles: roles})
	}
	s.mu.Unlock()

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(userFrom(r)) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	delete(s.users, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sortedProducts() []models.Product {
	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

func isAdmin(u user) bool {
	for _, r := range u.roles {
		if r == models.RoleAdmin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

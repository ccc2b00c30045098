// Package apitest provides an in-process fake of the storefront REST
// service for tests and scenarios.
//
// The fake keeps books, users and carts in memory, counts requests per
// route and can inject failures, delays and gated (held) responses so tests
// control the order in which responses arrive.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/storefront/internal/catalog"
	"github.com/roach88/storefront/internal/money"
)

// Route keys used by Hits, Fail and Hold.
const (
	RouteBooks      = "GET /books"
	RouteSearch     = "GET /books/search"
	RouteFilter     = "GET /books/filter"
	RouteCart       = "GET /cart"
	RouteCartAdd    = "POST /cart/add"
	RouteCartRemove = "DELETE /cart/{id}"
	RouteCartClear  = "DELETE /cart/clear"
	RouteLogin      = "POST /login"
	RouteRegister   = "POST /register"
)

// Fault alters how a route responds.
type Fault struct {
	// Status, when non-zero, replaces the response with this HTTP status.
	Status int
	// Reject answers 200 with success:false.
	Reject bool
	// Message is the error text sent with Status or Reject.
	Message string
	// Delay holds the response for this long (or until the client gives up).
	Delay time.Duration
	// Times limits the fault to the next N requests; 0 means until cleared.
	Times int
}

// Request is one recorded request.
type Request struct {
	Route     string
	Query     string
	Param     string
	RequestID string
}

type user struct {
	ID       int
	Username string
	Password string
}

// Server is the fake service.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	books       []catalog.Book
	users       map[string]user
	carts       map[string][]catalog.CartLine
	nextUser    int
	nextLine    int
	reportCount bool
	faults      map[string]*Fault
	gates       map[string]chan struct{}
	requests    []Request
}

// Option configures a Server.
type Option func(*Server)

// WithBooks replaces the fixture catalog.
func WithBooks(books ...catalog.Book) Option {
	return func(s *Server) { s.books = books }
}

// WithUser registers an account up front.
func WithUser(username, password string) Option {
	return func(s *Server) { s.addUser(username, password) }
}

// WithCartCount makes POST /cart/add report the cart size as cartCount.
func WithCartCount() Option {
	return func(s *Server) { s.reportCount = true }
}

// New starts a fake server. Callers must Close it.
func New(opts ...Option) *Server {
	s := &Server{
		books:    DefaultBooks(),
		users:    make(map[string]user),
		carts:    make(map[string][]catalog.CartLine),
		nextLine: 100,
		faults:   make(map[string]*Fault),
		gates:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

// BaseURL is the API root to hand to api.New.
func (s *Server) BaseURL() string {
	return s.srv.URL + "/api"
}

// Close releases held responses and shuts the server down.
func (s *Server) Close() {
	s.mu.Lock()
	for route, gate := range s.gates {
		close(gate)
		delete(s.gates, route)
	}
	s.mu.Unlock()
	s.srv.Close()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/books", s.handle(RouteBooks, s.listBooks))
		r.Get("/books/search", s.handle(RouteSearch, s.searchBooks))
		r.Get("/books/filter/{genre}", s.handle(RouteFilter, s.filterBooks))
		r.Get("/cart", s.handle(RouteCart, s.getCart))
		r.Post("/cart/add", s.handle(RouteCartAdd, s.addToCart))
		r.Delete("/cart/clear", s.handle(RouteCartClear, s.clearCart))
		r.Delete("/cart/{id}", s.handle(RouteCartRemove, s.removeFromCart))
		r.Post("/login", s.handle(RouteLogin, s.login))
		r.Post("/register", s.handle(RouteRegister, s.register))
	})
	return r
}

// handle records the request and applies any fault or gate before h runs.
func (s *Server) handle(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		param := chi.URLParam(r, "genre")
		if param == "" {
			param = chi.URLParam(r, "id")
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Route:     route,
			Query:     r.URL.RawQuery,
			Param:     param,
			RequestID: r.Header.Get("X-Request-ID"),
		})
		gate := s.gates[route]
		var fault Fault
		if f, ok := s.faults[route]; ok {
			fault = *f
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(s.faults, route)
				}
			}
		}
		s.mu.Unlock()

		if gate != nil && !wait(r.Context(), gate, 0) {
			return
		}
		if fault.Delay > 0 && !wait(r.Context(), nil, fault.Delay) {
			return
		}

		switch {
		case fault.Status != 0:
			writeJSON(w, fault.Status, map[string]any{"success": false, "error": fault.Message})
		case fault.Reject:
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": fault.Message})
		default:
			h(w, r)
		}
	}
}

func wait(ctx context.Context, gate <-chan struct{}, d time.Duration) bool {
	var timer <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-gate:
		return true
	case <-timer:
		return true
	case <-ctx.Done():
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]catalog.Book(nil), s.books...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) searchBooks(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("term")))
	s.mu.Lock()
	var out []catalog.Book
	for _, b := range s.books {
		if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.Author), term) {
			out = append(out, b)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) filterBooks(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	s.mu.Lock()
	var out []catalog.Book
	for _, b := range s.books {
		if strings.EqualFold(b.Genre, genre) {
			out = append(out, b)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	s.mu.Lock()
	out := append([]catalog.CartLine(nil), s.carts[uid]...)
	s.mu.Unlock()
	if out == nil {
		out = []catalog.CartLine{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID catalog.ID `json:"userId"`
		BookID catalog.ID `json:"bookId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID.IsZero() || body.BookID.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "userId and bookId are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.findBook(body.BookID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Book not found"})
		return
	}

	uid := body.UserID.String()
	lines := s.carts[uid]
	merged := false
	for i, l := range lines {
		if l.BookID == book.ID {
			lines[i].RawQuantity = money.NumberOf(l.Quantity() + 1)
			merged = true
			break
		}
	}
	if !merged {
		s.nextLine++
		lines = append(lines, catalog.CartLine{
			ID:          catalog.ID(strconv.Itoa(s.nextLine)),
			BookID:      book.ID,
			Title:       book.Title,
			Author:      book.Author,
			Genre:       book.Genre,
			RawPrice:    book.RawPrice,
			RawRating:   book.RawRating,
			RawQuantity: money.NumberOf(1),
			ImageURL:    book.ImageURL,
		})
	}
	s.carts[uid] = lines

	resp := map[string]any{"success": true, "message": "Book added to cart"}
	if s.reportCount {
		resp["cartCount"] = len(lines)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID catalog.ID `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	id := catalog.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	uid := body.UserID.String()
	lines := s.carts[uid]
	for i, l := range lines {
		if l.ID == id {
			s.carts[uid] = append(lines[:i:i], lines[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Cart item not found"})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID catalog.ID `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	delete(s.carts, body.UserID.String())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	_ = json.NewDecoder(r.Body).Decode(&c)

	s.mu.Lock()
	u, ok := s.users[c.Username]
	s.mu.Unlock()
	if !ok || u.Password != c.Password {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid username or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{"id": u.ID, "username": u.Username},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	_ = json.NewDecoder(r.Body).Decode(&c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[c.Username]; exists {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Username already exists"})
		return
	}
	s.addUser(c.Username, c.Password)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User registered successfully"})
}

// addUser must be called with s.mu held (or before the server starts).
func (s *Server) addUser(username, password string) user {
	s.nextUser++
	u := user{ID: s.nextUser, Username: username, Password: password}
	s.users[username] = u
	return u
}

func (s *Server) findBook(id catalog.ID) (catalog.Book, bool) {
	for _, b := range s.books {
		if b.ID == id {
			return b, true
		}
	}
	return catalog.Book{}, false
}

func nonNil(books []catalog.Book) []catalog.Book {
	if books == nil {
		return []catalog.Book{}
	}
	return books
}

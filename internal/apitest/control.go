package apitest

import (
	"strconv"

	"github.com/roach88/storefront/internal/catalog"
)

// Fail installs a fault on route until cleared or exhausted.
func (s *Server) Fail(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &f
}

// Clear removes any fault on route.
func (s *Server) Clear(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Hold makes route block until the returned release func is called.
// Requests already waiting are released together.
func (s *Server) Hold(route string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gates[route] = gate
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gates[route] == gate {
			close(gate)
			delete(s.gates, route)
		}
	}
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Route == route {
			n++
		}
	}
	return n
}

// TotalHits returns the number of requests to any route.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// SeedCart replaces a user's cart.
func (s *Server) SeedCart(userID int, lines ...catalog.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[strconv.Itoa(userID)] = append([]catalog.CartLine(nil), lines...)
}

// Cart returns the server-side cart of a user.
func (s *Server) Cart(userID int) []catalog.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.CartLine(nil), s.carts[strconv.Itoa(userID)]...)
}

// UserID returns the id assigned to username, or 0.
func (s *Server) UserID(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username].ID
}

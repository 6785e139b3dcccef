// Package rental is the reference business layer: a movie catalog with
// per-user balances, reachable through session-required actions.
package rental

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/server/models"
)

var (
	ErrMovieNotFound     = errors.New("movie not found")
	ErrMovieUnavailable  = errors.New("movie is not available")
	ErrNotRented         = errors.New("movie is not rented by this user")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// MovieSeed describes a catalog entry loaded at startup.
type MovieSeed struct {
	Title     string `json:"title" toml:"title"`
	Genre     string `json:"genre" toml:"genre"`
	Year      int    `json:"year" toml:"year"`
	CostCents int64  `json:"cost_cents" toml:"cost_cents"`
}

// DefaultCatalog is used when the configuration carries no catalog.
func DefaultCatalog() []MovieSeed {
	return []MovieSeed{
		{Title: "Alien", Genre: "Sci-Fi", Year: 1979, CostCents: 399},
		{Title: "Blade Runner", Genre: "Sci-Fi", Year: 1982, CostCents: 399},
		{Title: "Casablanca", Genre: "Drama", Year: 1942, CostCents: 299},
		{Title: "Heat", Genre: "Crime", Year: 1995, CostCents: 349},
		{Title: "Spirited Away", Genre: "Animation", Year: 2001, CostCents: 449},
	}
}

type account struct {
	balanceCents int64
	rented       map[int64]struct{}
}

// Service holds the catalog and accounts in memory. All methods are safe for
// concurrent use.
type Service struct {
	mu       sync.Mutex
	movies   map[int64]*models.Movie
	order    []int64
	accounts map[int64]*account
}

func NewService(seed []MovieSeed) *Service {
	s := &Service{
		movies:   make(map[int64]*models.Movie, len(seed)),
		accounts: make(map[int64]*account),
	}
	for _, m := range seed {
		s.addLocked(m)
	}
	return s
}

// AddMovie appends a movie to the catalog and returns its id.
func (s *Service) AddMovie(m MovieSeed) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(m)
}

func (s *Service) addLocked(m MovieSeed) int64 {
	id := int64(len(s.order) + 1)
	s.movies[id] = &models.Movie{
		ID: id, Title: m.Title, Genre: m.Genre, Year: m.Year, CostCents: m.CostCents, Available: true,
	}
	s.order = append(s.order, id)
	return id
}

func (s *Service) accountLocked(userID int64) *account {
	a, ok := s.accounts[userID]
	if !ok {
		a = &account{rented: make(map[int64]struct{})}
		s.accounts[userID] = a
	}
	return a
}

// List returns a snapshot of the whole catalog in id order.
func (s *Service) List() []models.Movie {
	return s.filter(func(*models.Movie) bool { return true })
}

// SearchByTitle matches a case-insensitive substring of the title.
func (s *Service) SearchByTitle(title string) []models.Movie {
	needle := strings.ToLower(title)
	return s.filter(func(m *models.Movie) bool {
		return strings.Contains(strings.ToLower(m.Title), needle)
	})
}

// SearchByGenre matches the genre exactly, ignoring case.
func (s *Service) SearchByGenre(genre string) []models.Movie {
	return s.filter(func(m *models.Movie) bool {
		return strings.EqualFold(m.Genre, genre)
	})
}

func (s *Service) filter(keep func(*models.Movie) bool) []models.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Movie{}
	for _, id := range s.order {
		if m := s.movies[id]; keep(m) {
			out = append(out, *m)
		}
	}
	return out
}

// Rent charges the user and marks the movie unavailable. It returns the new balance.
func (s *Service) Rent(userID, movieID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[movieID]
	if !ok {
		return 0, ErrMovieNotFound
	}
	if !m.Available {
		return 0, ErrMovieUnavailable
	}
	a := s.accountLocked(userID)
	if a.balanceCents < m.CostCents {
		return 0, ErrInsufficientFunds
	}

	a.balanceCents -= m.CostCents
	a.rented[movieID] = struct{}{}
	m.Available = false
	return a.balanceCents, nil
}

// Return gives a rented movie back. No refund is made.
func (s *Service) Return(userID, movieID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[movieID]
	if !ok {
		return ErrMovieNotFound
	}
	a := s.accountLocked(userID)
	if _, ok := a.rented[movieID]; !ok {
		return ErrNotRented
	}

	delete(a.rented, movieID)
	m.Available = true
	return nil
}

// TopUp adds amountCents to the balance and returns the new balance.
func (s *Service) TopUp(userID, amountCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accountLocked(userID)
	if amountCents > math.MaxInt64-a.balanceCents {
		return 0, fmt.Errorf("%w: balance limit exceeded", common.ErrValidation)
	}
	a.balanceCents += amountCents
	return a.balanceCents, nil
}

// Balance returns the balance and the ids of movies rented by userID.
func (s *Service) Balance(userID int64) (int64, []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accountLocked(userID)
	ids := make([]int64, 0, len(a.rented))
	for id := range a.rented {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return a.balanceCents, ids
}

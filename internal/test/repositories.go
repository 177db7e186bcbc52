package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, email, name, passwordHash string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[email]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Email: email, Name: name, PasswordHash: passwordHash}
	s.Next++
	s.Users[email] = user
	s.ByID[user.ID] = user
	return user, nil
}

// GetByEmail fetches user by email or returns not found.
func (s *UserRepositoryStub) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[email]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByID fetches user by identifier or returns not found.
func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// QuoteStoreStub keeps shipping quotes in a map.
type QuoteStoreStub struct {
	mu     sync.Mutex
	Quotes map[string]*model.ShippingQuote
	TTLs   map[string]time.Duration
	Err    error
}

// NewQuoteStoreStub constructs an empty quote store.
func NewQuoteStoreStub() *QuoteStoreStub {
	return &QuoteStoreStub{Quotes: map[string]*model.ShippingQuote{}, TTLs: map[string]time.Duration{}}
}

// Save stores a copy of quote.
func (s *QuoteStoreStub) Save(ctx context.Context, quote *model.ShippingQuote, ttl time.Duration) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := *quote
	s.Quotes[q.ID] = &q
	s.TTLs[q.ID] = ttl
	return nil
}

// Get returns a stored quote or not found.
func (s *QuoteStoreStub) Get(ctx context.Context, id string) (*model.ShippingQuote, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.Quotes[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *q
	return &out, nil
}

var _ repository.UserRepository = (*UserRepositoryStub)(nil)
var _ repository.QuoteStore = (*QuoteStoreStub)(nil)

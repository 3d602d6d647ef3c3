// Package users wraps the Roblox users API: keyword search as a cursor
// collection and single user lookups.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/rbx-client/pkg/client"
	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Endpoints of the users API, relative to the client base URL.
const (
	SearchEndpoint = "/v1/users/search"
	UserEndpoint   = "/v1/users/"
)

// ErrEmptyKeyword is returned when a search keyword is empty.
var ErrEmptyKeyword = errors.New("search keyword cannot be empty")

// UserQuery is a user as returned by a search.
type UserQuery struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// User is the detailed record of a single user.
type User struct {
	// Description is the profile text.
	Description string `json:"description"`

	// Created is the account creation instant.
	Created time.Time `json:"created"`

	IsBanned    bool   `json:"isBanned"`
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Service issues users API requests through a client.
type Service struct {
	client *client.Client
	source *client.PageSource[[]UserQuery]
	logger zerolog.Logger
}

// NewService creates a users service.
func NewService(c *client.Client) *Service {
	return &Service{
		client: c,
		source: client.NewPageSource[[]UserQuery](c),
		logger: log.With().Str("component", "users").Logger(),
	}
}

// Source returns the page source used for search results.
func (s *Service) Source() cursor.Source[[]UserQuery] {
	return s.source
}

// SearchURL returns the search endpoint for keyword.
func SearchURL(keyword string) string {
	q := url.Values{}
	q.Set("keyword", keyword)
	return SearchEndpoint + "?" + q.Encode()
}

// Search fetches the first page of users matching keyword.
func (s *Service) Search(ctx context.Context, keyword string) (cursor.Page[[]UserQuery], error) {
	if keyword == "" {
		return cursor.Page[[]UserQuery]{}, ErrEmptyKeyword
	}

	page, err := s.source.Fetch(ctx, SearchURL(keyword), "")
	if err != nil {
		return cursor.Page[[]UserQuery]{}, fmt.Errorf("search %q: %w", keyword, err)
	}

	s.logger.Debug().
		Str("keyword", keyword).
		Int("items", len(page.Data)).
		Bool("has_next", page.HasNext()).
		Msg("Search page fetched")

	return page, nil
}

// SearchTimeline returns a timeline positioned at the first search page.
func (s *Service) SearchTimeline(ctx context.Context, keyword string) (*cursor.CursorTimeline[[]UserQuery], error) {
	page, err := s.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return page.Timeline(s.source), nil
}

// SearchIterator returns an item iterator over all users matching keyword,
// with up to prefetch results buffered before it is returned.
func (s *Service) SearchIterator(ctx context.Context, keyword string, prefetch int) (*cursor.ItemIterator[UserQuery], error) {
	page, err := s.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	if prefetch <= 0 {
		return cursor.NewItemIterator(page, s.Source()), nil
	}

	it, buffered, err := cursor.WithCapacity(ctx, page, s.Source(), prefetch)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("keyword", keyword).
		Int("buffered", buffered).
		Int("target", prefetch).
		Msg("Search results prefetched")

	return it, nil
}

// Lookup fetches the details of the user with the given id.
func (s *Service) Lookup(ctx context.Context, id uint64) (*User, error) {
	var user User
	if err := s.client.GetJSON(ctx, UserEndpoint+strconv.FormatUint(id, 10), &user); err != nil {
		return nil, fmt.Errorf("lookup user %d: %w", id, err)
	}
	return &user, nil
}

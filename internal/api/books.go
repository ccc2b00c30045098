package api

import (
	"context"
	"net/url"

	"github.com/roach88/storefront/internal/catalog"
)

// Books fetches the full catalog (GET /books).
func (c *Client) Books(ctx context.Context) ([]catalog.Book, error) {
	return c.books(ctx, "/books")
}

// SearchBooks runs a free-text search (GET /books/search?term=).
func (c *Client) SearchBooks(ctx context.Context, term string) ([]catalog.Book, error) {
	return c.books(ctx, "/books/search?term="+url.QueryEscape(term))
}

// FilterBooks lists one genre (GET /books/filter/<genre>).
func (c *Client) FilterBooks(ctx context.Context, genre string) ([]catalog.Book, error) {
	return c.books(ctx, "/books/filter/"+url.PathEscape(genre))
}

func (c *Client) books(ctx context.Context, path string) ([]catalog.Book, error) {
	var out []catalog.Book
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []catalog.Book{}
	}
	return out, nil
}

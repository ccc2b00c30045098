package api

import (
	"context"
	"net/url"

	"github.com/roach88/storefront/internal/catalog"
)

// AddResult is the acknowledgement of a successful add.
type AddResult struct {
	Message string
	// Count is the server's cart size after the add, when it reported one.
	Count *int
}

type userBody struct {
	UserID catalog.ID `json:"userId"`
}

type addBody struct {
	UserID catalog.ID `json:"userId"`
	BookID catalog.ID `json:"bookId"`
}

// CartItems lists a user's cart (GET /cart?userId=).
func (c *Client) CartItems(ctx context.Context, userID catalog.ID) ([]catalog.CartLine, error) {
	var out []catalog.CartLine
	if err := c.do(ctx, "GET", "/cart?userId="+url.QueryEscape(userID.String()), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []catalog.CartLine{}
	}
	return out, nil
}

// AddToCart adds a book to the user's cart (POST /cart/add).
func (c *Client) AddToCart(ctx context.Context, userID, bookID catalog.ID) (AddResult, error) {
	a, err := c.doAck(ctx, "POST", "/cart/add", addBody{UserID: userID, BookID: bookID})
	if err != nil {
		return AddResult{}, err
	}

	res := AddResult{Message: a.Message}
	if n, ok := a.count(); ok {
		res.Count = &n
	}
	return res, nil
}

// RemoveFromCart deletes one cart line (DELETE /cart/<lineID>).
func (c *Client) RemoveFromCart(ctx context.Context, userID, lineID catalog.ID) error {
	_, err := c.doAck(ctx, "DELETE", "/cart/"+url.PathEscape(lineID.String()), userBody{UserID: userID})
	return err
}

// ClearCart deletes every line of the user's cart (DELETE /cart/clear).
func (c *Client) ClearCart(ctx context.Context, userID catalog.ID) error {
	_, err := c.doAck(ctx, "DELETE", "/cart/clear", userBody{UserID: userID})
	return err
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/SmileSnow819/natours/pkg/autherr"
)

// Values encodes q the way the backend's query parser expects,
// e.g. price[lte]=500.
func (q TourQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Fields != "" {
		v.Set("fields", q.Fields)
	}
	if q.Difficulty != "" {
		v.Set("difficulty", q.Difficulty)
	}

	bounds := []struct {
		op    string
		value *float64
	}{
		{"lt", q.Price.LT},
		{"lte", q.Price.LTE},
		{"gt", q.Price.GT},
		{"gte", q.Price.GTE},
	}
	for _, b := range bounds {
		if b.value != nil {
			v.Set("price["+b.op+"]", strconv.FormatFloat(*b.value, 'f', -1, 64))
		}
	}
	return v
}

// GetTours lists tours. src may be nil.
func (c *Client) GetTours(ctx context.Context, src oauth2.TokenSource, q TourQuery) ([]Tour, error) {
	var env envelope[[]Tour]
	err := c.do(ctx, request{method: http.MethodGet, path: "/tours", query: q.Values(), auth: authOptional, source: src}, &env)
	if err != nil {
		return nil, err
	}
	if tours := env.doc(); tours != nil {
		return *tours, nil
	}
	return []Tour{}, nil
}

// GetTour fetches a single tour. src may be nil.
func (c *Client) GetTour(ctx context.Context, src oauth2.TokenSource, id string) (*Tour, error) {
	var env envelope[Tour]
	err := c.do(ctx, request{method: http.MethodGet, path: "/tours/" + url.PathEscape(id), auth: authOptional, source: src}, &env)
	if err != nil {
		return nil, err
	}
	tour := env.doc()
	if tour == nil {
		return nil, autherr.Validation("response is missing the tour")
	}
	return tour, nil
}

func reviewsPath(tourID string) string {
	if tourID == "" {
		return "/reviews"
	}
	return "/tours/" + url.PathEscape(tourID) + "/reviews"
}

// GetReviews lists the reviews of a tour, or all reviews when tourID is empty.
func (c *Client) GetReviews(ctx context.Context, src oauth2.TokenSource, tourID string) ([]Review, error) {
	var env envelope[[]Review]
	err := c.do(ctx, request{method: http.MethodGet, path: reviewsPath(tourID), auth: authOptional, source: src}, &env)
	if err != nil {
		return nil, err
	}
	if reviews := env.doc(); reviews != nil {
		return *reviews, nil
	}
	return []Review{}, nil
}

// CreateReview posts a review as the current user.
func (c *Client) CreateReview(ctx context.Context, src oauth2.TokenSource, tourID string, input ReviewInput) (*Review, error) {
	var env envelope[Review]
	err := c.do(ctx, request{method: http.MethodPost, path: reviewsPath(tourID), body: input, auth: authRequired, source: src}, &env)
	if err != nil {
		return nil, err
	}
	review := env.doc()
	if review == nil {
		return nil, autherr.Validation("response is missing the review")
	}
	return review, nil
}

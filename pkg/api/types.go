package api

import (
	"encoding/json"
	"time"
)

// Role is a natours user role.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User is the user record returned by the backend and persisted by the
// session manager.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// AuthResponse is the payload of signup, login and password update.
type AuthResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   *struct {
		User *User `json:"user"`
	} `json:"data,omitempty"`
}

// User returns the embedded user record, or nil.
func (r *AuthResponse) User() *User {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data.User
}

// LoginCredentials is the login request body.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupData is the signup request body.
type SignupData struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Photo           string `json:"photo,omitempty"`
}

// UserUpdate is the updateMe request body.
type UserUpdate struct {
	Name  string `json:"name,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// PasswordUpdate is the updateMyPassword request body.
type PasswordUpdate struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// PasswordReset is the resetPassword request body.
type PasswordReset struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Tour is a bookable tour.
type Tour struct {
	ID              string      `json:"_id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug,omitempty"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"maxGroupSize"`
	Difficulty      string      `json:"difficulty"`
	RatingsAverage  float64     `json:"ratingsAverage"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price"`
	PriceDiscount   float64     `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover"`
	Images          []string    `json:"images,omitempty"`
	StartDates      []time.Time `json:"startDates,omitempty"`
}

// ReviewAuthor is the populated author of a review.
type ReviewAuthor struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// UnmarshalJSON accepts either a populated author object or a bare id.
func (a *ReviewAuthor) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*a = ReviewAuthor{ID: id}
		return nil
	}
	type plain ReviewAuthor
	return json.Unmarshal(data, (*plain)(a))
}

// Review is a tour review.
type Review struct {
	ID        string        `json:"_id"`
	Review    string        `json:"review"`
	Rating    float64       `json:"rating"`
	Tour      string        `json:"tour,omitempty"`
	User      *ReviewAuthor `json:"user,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReviewInput is the body of a new review.
type ReviewInput struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
}

// PriceFilter bounds tour prices. Nil fields are not sent.
type PriceFilter struct {
	LT  *float64
	LTE *float64
	GT  *float64
	GTE *float64
}

// TourQuery holds the list filters of GET /tours.
type TourQuery struct {
	Page       int
	Limit      int
	Sort       string
	Fields     string
	Difficulty string
	Price      PriceFilter
}

// envelope is the generic {status, data: {...}} wrapper. Single documents
// come as data.document or data.data depending on the endpoint.
type envelope[T any] struct {
	Status  string `json:"status"`
	Results int    `json:"results,omitempty"`
	Data    struct {
		Document *T `json:"document"`
		Data     *T `json:"data"`
		User     *T `json:"user"`
	} `json:"data"`
}

func (e *envelope[T]) doc() *T {
	switch {
	case e.Data.Document != nil:
		return e.Data.Document
	case e.Data.Data != nil:
		return e.Data.Data
	default:
		return e.Data.User
	}
}

// errorBody is the backend error payload.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

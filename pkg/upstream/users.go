package upstream

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	relayerrors "github.com/matzehuels/relay/pkg/errors"
)

// Users API limits.
const (
	MaxUsersLimit = 1000
	MaxUserName   = 100
	MaxUserAge    = 150
)

// User is one upstream user record.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`
}

// UserInput is the payload for [Client.CreateUser].
type UserInput struct {
	Name  string
	Email string
	Age   int
}

// userFields lists the fields [Client.UpdateUser] forwards.
var userFields = []string{"name", "email", "age"}

// GetUsers lists users. limit is capped at 1000 and offset floored at 0.
func (c *Client) GetUsers(ctx context.Context, limit, offset int) Response {
	q := url.Values{
		"limit":  {strconv.Itoa(relayerrors.ClampLimit(limit, MaxUsersLimit))},
		"offset": {strconv.Itoa(relayerrors.ClampOffset(offset))},
	}
	return c.Get(ctx, "/users", q)
}

// GetUser fetches one user. id must be alphanumeric.
func (c *Client) GetUser(ctx context.Context, id string) Response {
	id, err := relayerrors.ValidateID(id)
	if err != nil {
		return failed(err)
	}
	return c.Get(ctx, "/users/"+id, nil)
}

// CreateUser validates and sanitizes in before sending it. Name and email
// are required; the name is trimmed and cut to 100 characters, the email
// lowercased, and an age outside 0..150 is sent as 0.
func (c *Client) CreateUser(ctx context.Context, in UserInput) Response {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return failed(relayerrors.New(relayerrors.ErrCodeInvalidInput, "missing required field: name"))
	}
	if strings.TrimSpace(in.Email) == "" {
		return failed(relayerrors.New(relayerrors.ErrCodeInvalidInput, "missing required field: email"))
	}
	name, err := relayerrors.ValidateInput(relayerrors.Truncate(name, MaxUserName), "name", MaxUserName)
	if err != nil {
		return failed(err)
	}
	email, err := relayerrors.SanitizeEmail(in.Email)
	if err != nil {
		return failed(err)
	}

	age := in.Age
	if age < 0 || age > MaxUserAge {
		age = 0
	}
	return c.Post(ctx, "/users", User{Name: name, Email: email, Age: age})
}

// UpdateUser sends the allowed subset of fields. Unknown fields and
// values that fail validation are dropped; if nothing is left the update
// is rejected without a request.
func (c *Client) UpdateUser(ctx context.Context, id string, fields map[string]any) Response {
	id, err := relayerrors.ValidateID(id)
	if err != nil {
		return failed(err)
	}
	if len(fields) == 0 {
		return failed(relayerrors.New(relayerrors.ErrCodeInvalidInput, "no update data provided"))
	}

	clean := make(map[string]any, len(userFields))
	for _, f := range userFields {
		v, ok := fields[f]
		if !ok {
			continue
		}
		switch f {
		case "name":
			if s, ok := v.(string); ok {
				if name, err := relayerrors.ValidateInput(relayerrors.Truncate(strings.TrimSpace(s), MaxUserName), "name", MaxUserName); err == nil && name != "" {
					clean[f] = name
				}
			}
		case "email":
			if s, ok := v.(string); ok {
				if email, err := relayerrors.SanitizeEmail(s); err == nil {
					clean[f] = email
				}
			}
		case "age":
			if age, ok := asAge(v); ok {
				clean[f] = age
			}
		}
	}
	if len(clean) == 0 {
		return failed(relayerrors.New(relayerrors.ErrCodeInvalidInput, "no valid fields to update"))
	}
	return c.Put(ctx, "/users/"+id, clean)
}

// DeleteUser removes a user. id must be alphanumeric.
func (c *Client) DeleteUser(ctx context.Context, id string) Response {
	id, err := relayerrors.ValidateID(id)
	if err != nil {
		return failed(err)
	}
	return c.Delete(ctx, "/users/"+id)
}

// asAge accepts integers, and whole floats as decoded from JSON.
func asAge(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		n = int(x)
	default:
		return 0, false
	}
	if n < 0 || n > MaxUserAge {
		return 0, false
	}
	return n, true
}

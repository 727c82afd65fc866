package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/relay/pkg/retry"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func usersServer(t *testing.T, last *recorded, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		*last = recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		json.NewDecoder(r.Body).Decode(&last.body)
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com","age":36}`))
	}))
}

func TestGetUsersClampsPagination(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	tests := []struct {
		limit, offset int
		query         string
	}{
		{100, 0, "limit=100&offset=0"},
		{5000, -10, "limit=1000&offset=0"},
		{1000, 20, "limit=1000&offset=20"},
	}
	for _, tt := range tests {
		if resp := c.GetUsers(context.Background(), tt.limit, tt.offset); !resp.Success {
			t.Fatalf("GetUsers() failed: %v", resp.Err)
		}
		if last.query != tt.query {
			t.Errorf("GetUsers(%d, %d) query = %q, want %q", tt.limit, tt.offset, last.query, tt.query)
		}
	}
}

func TestGetUser(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	resp := c.GetUser(context.Background(), " u1 ")
	if !resp.Success || last.path != "/users/u1" {
		t.Fatalf("GetUser() = %+v, path %q", resp, last.path)
	}
	var u User
	if err := resp.Decode(&u); err != nil || u.Email != "ada@example.com" {
		t.Errorf("Decode() = %+v, %v", u, err)
	}

	for _, id := range []string{"", "../etc", "a b", "1;2"} {
		resp := c.GetUser(context.Background(), id)
		if resp.Success || resp.Err.Kind != retry.KindValidation || resp.Attempts != 0 {
			t.Errorf("GetUser(%q) = %+v, want validation failure", id, resp)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
}

func TestCreateUser(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	resp := c.CreateUser(context.Background(), UserInput{
		Name:  "  " + strings.Repeat("a", 120) + " ",
		Email: " Ada@Example.COM ",
		Age:   200,
	})
	if !resp.Success {
		t.Fatalf("CreateUser() failed: %v", resp.Err)
	}
	if last.method != http.MethodPost || last.path != "/users" {
		t.Errorf("sent %s %s", last.method, last.path)
	}
	if name, _ := last.body["name"].(string); len(name) != MaxUserName {
		t.Errorf("name length = %d, want %d", len(name), MaxUserName)
	}
	if last.body["email"] != "ada@example.com" {
		t.Errorf("email = %v", last.body["email"])
	}
	if last.body["age"] != float64(0) {
		t.Errorf("age = %v, want 0", last.body["age"])
	}
}

func TestCreateUserValidation(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	tests := []struct {
		name string
		in   UserInput
	}{
		{"missing name", UserInput{Email: "a@b.co"}},
		{"missing email", UserInput{Name: "Ada"}},
		{"bad email", UserInput{Name: "Ada", Email: "ada@localhost"}},
		{"malicious name", UserInput{Name: "Robert'); DROP TABLE users;--", Email: "a@b.co"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.CreateUser(context.Background(), tt.in)
			if resp.Success || resp.Err.Kind != retry.KindValidation || resp.Attempts != 0 {
				t.Errorf("CreateUser() = %+v", resp)
			}
		})
	}
	if requests.Load() != 0 {
		t.Errorf("requests = %d, want 0", requests.Load())
	}
}

func TestUpdateUser(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	resp := c.UpdateUser(context.Background(), "u1", map[string]any{
		"name":  " Ada Lovelace ",
		"email": "not-an-email",
		"age":   float64(37),
		"role":  "admin",
	})
	if !resp.Success {
		t.Fatalf("UpdateUser() failed: %v", resp.Err)
	}
	if last.method != http.MethodPut || last.path != "/users/u1" {
		t.Errorf("sent %s %s", last.method, last.path)
	}
	want := map[string]any{"name": "Ada Lovelace", "age": float64(37)}
	if len(last.body) != len(want) || last.body["name"] != want["name"] || last.body["age"] != want["age"] {
		t.Errorf("body = %v, want %v", last.body, want)
	}

	for _, fields := range []map[string]any{nil, {"role": "admin"}, {"age": 151}, {"age": 3.5}} {
		resp := c.UpdateUser(context.Background(), "u1", fields)
		if resp.Success || resp.Err.Kind != retry.KindValidation {
			t.Errorf("UpdateUser(%v) = %+v, want validation failure", fields, resp)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
}

func TestDeleteUser(t *testing.T) {
	var last recorded
	var requests atomic.Int32
	server := usersServer(t, &last, &requests)
	defer server.Close()
	c := newTestClient(t, server.URL, nil)

	if resp := c.DeleteUser(context.Background(), "u1"); !resp.Success || last.method != http.MethodDelete {
		t.Errorf("DeleteUser() = %+v via %s", resp, last.method)
	}
	if resp := c.DeleteUser(context.Background(), ""); resp.Success || resp.Err.Kind != retry.KindValidation {
		t.Errorf("DeleteUser(\"\") = %+v", resp)
	}
}

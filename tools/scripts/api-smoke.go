// Package main provides a CI-friendly HTTP smoke test for a running tasklist server.
//
// It validates:
//   - register + duplicate-name rejection
//   - login returns a bearer token in the Authorization header
//   - create / get / list / update / delete for the owner
//   - another account gets 403 on the owner's task
//   - protected routes reject a missing token with 401
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type task struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}

	// Unique names keep repeated runs against one database independent.
	suffix := strings.ToLower(ulid.Make().String())
	alice, bob := "smoke-alice-"+suffix, "smoke-bob-"+suffix

	aliceAcct := c.register(alice, "pw-alice")
	c.register(bob, "pw-bob")

	if status, _ := c.call(http.MethodPost, "/register", "", map[string]string{"name": alice, "password": "x"}, nil); status != http.StatusConflict {
		fatalf("duplicate register: want 409, got %d", status)
	}

	aliceTok := c.login(alice, "pw-alice")
	bobTok := c.login(bob, "pw-bob")

	var created task
	c.mustCall(http.MethodPost, "/todo", aliceTok, map[string]string{"description": "buy milk", "due_date": "2024-01-01"}, &created)
	if created.OwnerID != aliceAcct.ID {
		fatalf("create: owner_id=%d want %d", created.OwnerID, aliceAcct.ID)
	}
	path := fmt.Sprintf("/todo/%d", created.ID)

	var got task
	c.mustCall(http.MethodGet, path, aliceTok, nil, &got)
	if got != created {
		fatalf("get: %+v != created %+v", got, created)
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		status, _ := c.call(method, path, bobTok, map[string]string{"description": "x", "due_date": "y"}, nil)
		if status != http.StatusForbidden {
			fatalf("%s as other account: want 403, got %d", method, status)
		}
	}

	if status, _ := c.call(http.MethodGet, "/todouser", "", nil, nil); status != http.StatusUnauthorized {
		fatalf("list without token: want 401, got %d", status)
	}

	var list []task
	c.mustCall(http.MethodGet, "/todouser", aliceTok, nil, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		fatalf("list: unexpected items %+v", list)
	}

	var updated task
	c.mustCall(http.MethodPut, path, aliceTok, map[string]string{"description": "buy oat milk", "due_date": "2024-01-02"}, &updated)
	if updated.ID != created.ID || updated.OwnerID != created.OwnerID || updated.Description != "buy oat milk" {
		fatalf("update: unexpected %+v", updated)
	}

	var deleted task
	c.mustCall(http.MethodDelete, path, aliceTok, nil, &deleted)
	if deleted != updated {
		fatalf("delete: returned %+v, want %+v", deleted, updated)
	}
	if status, _ := c.call(http.MethodGet, path, aliceTok, nil, nil); status != http.StatusNotFound {
		fatalf("get after delete: want 404, got %d", status)
	}

	fmt.Println("OK: tasklist api smoke passed")
}

func (c *smokeClient) register(name, pw string) account {
	var a account
	c.mustCall(http.MethodPost, "/register", "", map[string]string{"name": name, "password": pw, "profession": "smoke"}, &a)
	if a.ID <= 0 || a.Name != name {
		fatalf("register %s: unexpected %+v", name, a)
	}
	return a
}

func (c *smokeClient) login(name, pw string) string {
	status, hdr := c.call(http.MethodPost, "/login", "", map[string]string{"name": name, "password": pw}, nil)
	if status != http.StatusOK {
		fatalf("login %s: status %d", name, status)
	}
	tok := hdr.Get("Authorization")
	if !strings.HasPrefix(tok, "Bearer ") {
		fatalf("login %s: missing bearer header", name)
	}
	return tok
}

func (c *smokeClient) mustCall(method, path, bearer string, body, out any) {
	status, _ := c.call(method, path, bearer, body, out)
	if status != http.StatusOK {
		fatalf("%s %s: status %d", method, path, status)
	}
}

func (c *smokeClient) call(method, path, bearer string, body, out any) (int, http.Header) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fatalf("encode %s %s: %v", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("read %s %s: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode, resp.Header
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}

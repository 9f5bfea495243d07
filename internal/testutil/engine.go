package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Submission is one statement received by a FakeEngine.
type Submission struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// FakeEngine is an httptest server speaking the first step of the
// statement protocol. It records every submission and answers with a
// QUEUED query unless a failure is configured.
type FakeEngine struct {
	Server *httptest.Server

	mu          sync.Mutex
	submissions []Submission
	status      int
	body        string
}

// NewFakeEngine starts a fake engine that is closed with the test.
func NewFakeEngine(t testing.TB) *FakeEngine {
	t.Helper()
	e := &FakeEngine{}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Server.Close)
	return e
}

// Address returns host:port for use in an engine config.
func (e *FakeEngine) Address() string {
	return strings.TrimPrefix(e.Server.URL, "http://")
}

// FailWith makes subsequent submissions return status and body verbatim.
func (e *FakeEngine) FailWith(status int, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	e.body = body
}

// Submissions returns a copy of what has been received so far.
func (e *FakeEngine) Submissions() []Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Submission(nil), e.submissions...)
}

// Last returns the most recent submission. It fails the test if there is none.
func (e *FakeEngine) Last(t testing.TB) Submission {
	t.Helper()
	subs := e.Submissions()
	if len(subs) == 0 {
		t.Fatal("fake engine received no submissions")
	}
	return subs[len(subs)-1]
}

func (e *FakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	e.mu.Lock()
	e.submissions = append(e.submissions, Submission{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	n := len(e.submissions)
	status, failBody := e.status, e.body
	e.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, failBody)
		return
	}
	if r.Method != http.MethodPost || r.URL.Path != "/v1/statement" {
		http.NotFound(w, r)
		return
	}

	id := fmt.Sprintf("20260101_000000_%05d_fake", n)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      id,
		"infoUri": e.Server.URL + "/ui/query.html?" + id,
		"nextUri": e.Server.URL + "/v1/statement/queued/" + id + "/1",
		"stats":   map[string]any{"state": "QUEUED"},
	})
}

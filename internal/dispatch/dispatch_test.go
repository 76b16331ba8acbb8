package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClientPostSetsHeaders(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", time.Second)
	resp, err := c.Post(context.Background(), map[string]string{"conv_id": "x"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if !resp.StatusOK || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("auth header %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type %q", gotContentType)
	}
	var sent map[string]string
	if err := json.Unmarshal(gotBody, &sent); err != nil || sent["conv_id"] != "x" {
		t.Fatalf("body %s", gotBody)
	}
}

func TestClientPostNoKeyNoAuthHeader(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.Post(context.Background(), map[string]string{}); err != nil {
		t.Fatalf("post: %v", err)
	}
	if sawAuth {
		t.Fatal("authorization header sent without configured key")
	}
}

func TestClientPostCapturesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	resp, err := c.Post(context.Background(), map[string]string{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusOK {
		t.Fatal("502 marked ok")
	}
	if string(resp.Body) != "upstream exploded" {
		t.Fatalf("body %q", resp.Body)
	}
}

// fakePoster fails specific calls by 1-based index.
type fakePoster struct {
	calls  int
	failOn map[int]error
	badOn  map[int]int
	body   string
	seen   []string
}

func (f *fakePoster) Post(_ context.Context, payload any) (Response, error) {
	f.calls++
	p := payload.(Payload)
	f.seen = append(f.seen, p.ConvID)
	if err, ok := f.failOn[f.calls]; ok {
		return Response{}, err
	}
	if code, ok := f.badOn[f.calls]; ok {
		return Response{StatusCode: code, Status: "500 Internal Server Error", Body: []byte("boom")}, nil
	}
	body := f.body
	if body == "" {
		body = `{"summary":"ok"}`
	}
	return Response{StatusOK: true, StatusCode: 200, Status: "200 OK", Body: []byte(body)}, nil
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	poster := &fakePoster{failOn: map[int]error{2: errors.New("connection refused")}}
	d := NewDispatcher(poster, zerolog.Nop())

	payloads := []Payload{{ConvID: "a"}, {ConvID: "b"}, {ConvID: "c"}}
	results := d.Send(context.Background(), payloads)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if poster.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", poster.calls)
	}
	if poster.seen[0] != "a" || poster.seen[1] != "b" || poster.seen[2] != "c" {
		t.Fatalf("dispatch order changed: %v", poster.seen)
	}
	if results[0].OK == false || results[2].OK == false {
		t.Fatalf("unexpected failures: %+v", results)
	}
	if results[1].OK || results[1].Error == "" {
		t.Fatalf("second result should fail: %+v", results[1])
	}
	if FailureCount(results) != 1 {
		t.Fatalf("failure count %d, want 1", FailureCount(results))
	}
}

func TestDispatcherRecordsHTTPFailureDetail(t *testing.T) {
	poster := &fakePoster{badOn: map[int]int{1: 500}}
	d := NewDispatcher(poster, zerolog.Nop())

	results := d.Send(context.Background(), []Payload{{ConvID: "a"}})
	r := results[0]
	if r.OK {
		t.Fatal("500 marked ok")
	}
	if r.StatusCode != 500 {
		t.Fatalf("status code %d", r.StatusCode)
	}
	if r.Error == "" {
		t.Fatal("missing error detail")
	}
}

func TestDispatcherParsesJSONResponse(t *testing.T) {
	poster := &fakePoster{body: `{"summary":"tudo certo"}`}
	d := NewDispatcher(poster, zerolog.Nop())

	results := d.Send(context.Background(), []Payload{{ConvID: "a"}})
	obj, ok := results[0].Response.(map[string]any)
	if !ok {
		t.Fatalf("response not parsed: %T", results[0].Response)
	}
	if obj["summary"] != "tudo certo" {
		t.Fatalf("unexpected response: %v", obj)
	}
}

func TestDispatcherKeepsOpaqueTextResponse(t *testing.T) {
	poster := &fakePoster{body: "accepted, thanks"}
	d := NewDispatcher(poster, zerolog.Nop())

	results := d.Send(context.Background(), []Payload{{ConvID: "a"}})
	if !results[0].OK {
		t.Fatalf("non-JSON body treated as failure: %+v", results[0])
	}
	if results[0].Response != "accepted, thanks" {
		t.Fatalf("raw body not retained: %v", results[0].Response)
	}
}

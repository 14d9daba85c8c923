package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tracksync/model"
)

func staticToken(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

func testTaskPayload(t *testing.T, title string) json.RawMessage {
	t.Helper()
	payload, err := model.Encode(model.Task{Title: title, Status: model.StatusTodo})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return payload
}

func TestCreateSendsAuthAndIdempotencyHeaders(t *testing.T) {
	var gotAuth, gotIdem, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("X-Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"srv-1","title":"buy milk","status":"open"}`))
	}))
	defer srv.Close()

	gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok-123"), time.Second))

	canon, err := gw.Create(context.Background(), "local-abc", testTaskPayload(t, "buy milk"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if canon.ID != "srv-1" {
		t.Errorf("Expected canonical id srv-1, got %q", canon.ID)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Expected bearer token header, got %q", gotAuth)
	}
	if gotIdem != "local-abc" {
		t.Errorf("Expected idempotency key header, got %q", gotIdem)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnprocessableEntity, KindRejected},
		{http.StatusBadRequest, KindRejected},
		{http.StatusInternalServerError, KindTransport},
		{http.StatusBadGateway, KindTransport},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))

		gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok"), time.Second))
		_, err := gw.Update(context.Background(), "srv-1", testTaskPayload(t, "x"))
		srv.Close()

		if err == nil {
			t.Errorf("Status %d: expected error", tc.status)
			continue
		}
		var remoteErr *Error
		if !errors.As(err, &remoteErr) {
			t.Errorf("Status %d: expected remote error, got %v", tc.status, err)
			continue
		}
		if remoteErr.Kind != tc.kind {
			t.Errorf("Status %d: expected kind %s, got %s", tc.status, tc.kind, remoteErr.Kind)
		}
		if remoteErr.StatusCode != tc.status {
			t.Errorf("Status %d: recorded status %d", tc.status, remoteErr.StatusCode)
		}
	}
}

func TestConnectionFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok"), time.Second))
	_, err := gw.List(context.Background(), ListFilter{})
	if !IsTransport(err) {
		t.Errorf("Expected transport error, got %v", err)
	}
}

func TestListDecodesEntitiesAndFilter(t *testing.T) {
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"id":"srv-1","title":"a","status":"open","project_id":"proj-1"},
			{"id":"srv-2","title":"b","status":"completed","project_id":"proj-1"}
		]`))
	}))
	defer srv.Close()

	gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok"), time.Second))
	canons, err := gw.List(context.Background(), ListFilter{ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotQuery != "project_id=proj-1" {
		t.Errorf("Expected project filter in query, got %q", gotQuery)
	}
	if len(canons) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(canons))
	}
	if canons[0].ID != "srv-1" || canons[0].OwnerKey != "proj-1" {
		t.Errorf("Unexpected first entity: %+v", canons[0])
	}

	var task model.Task
	if err := model.Decode(canons[1].Payload, &task); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if task.Status != model.StatusDone {
		t.Errorf("Expected completed mapped to done, got %s", task.Status)
	}
}

func TestCreateRejectsEntityWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"no id","status":"open"}`))
	}))
	defer srv.Close()

	gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok"), time.Second))
	if _, err := gw.Create(context.Background(), "k", testTaskPayload(t, "x")); err == nil {
		t.Error("Expected error for entity without id")
	}
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/srv-1" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	gw := NewTasksGateway(NewClient(srv.URL, staticToken("tok"), time.Second))
	if err := gw.Delete(context.Background(), "srv-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	c := NewClient(srv.URL, nil, time.Second)
	if !c.Ping(context.Background()) {
		t.Error("Expected ping to succeed against healthy server")
	}

	srv.Close()
	if c.Ping(context.Background()) {
		t.Error("Expected ping to fail against closed server")
	}
}

func TestMissingCredentialIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Request should not reach the server without a credential")
	}))
	defer srv.Close()

	failing := func(ctx context.Context) (string, error) {
		return "", context.Canceled
	}
	gw := NewTasksGateway(NewClient(srv.URL, failing, time.Second))
	_, err := gw.List(context.Background(), ListFilter{})
	if !IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
}

package bridgeerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("controller", "c1")
	if !errors.Is(err, &Error{Code: CodeNotFound}) {
		t.Fatal("expected NotFound to match by code")
	}
	if errors.Is(err, &Error{Code: CodeSDKError}) {
		t.Fatal("expected code mismatch")
	}
}

func TestFromWrapsForeignErrors(t *testing.T) {
	cause := errors.New("boom")
	be := From(cause)
	if be.Code != CodeUnexpected {
		t.Fatalf("expected UNEXPECTED, got %s", be.Code)
	}
	if !errors.Is(be, cause) {
		t.Fatal("expected cause to be preserved")
	}

	wrapped := fmt.Errorf("handler: %w", NotInitialized())
	if got := From(wrapped).Code; got != CodeNotInitialized {
		t.Fatalf("expected NOT_INITIALIZED through wrapping, got %s", got)
	}
	if From(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestMapIncludesDetailsOnlyWhenSet(t *testing.T) {
	m := InvalidArguments("missing %s", "orderToken").Map()
	if m["code"] != "INVALID_ARGUMENTS" {
		t.Fatalf("unexpected code %v", m["code"])
	}
	if _, ok := m["details"]; ok {
		t.Fatal("expected no details key")
	}

	m = AlreadyInProgress("button", "3").Map()
	details, ok := m["details"].(map[string]any)
	if !ok || details["id"] != "3" {
		t.Fatalf("expected details with id, got %v", m["details"])
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArguments:  http.StatusBadRequest,
		CodeNotInitialized:    http.StatusPreconditionFailed,
		CodeNotFound:          http.StatusNotFound,
		CodeAlreadyInProgress: http.StatusConflict,
		CodeSDKError:          http.StatusBadGateway,
		CodeSDKUnavailable:    http.StatusServiceUnavailable,
		CodeUnexpected:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d, got %d", code, want, got)
		}
	}
}

package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := Errorf(NotFound, "asset %s", "a-1")
	if CodeOf(err) != NotFound {
		t.Fatalf("expected NotFound, got %v", CodeOf(err))
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if CodeOf(wrapped) != NotFound {
		t.Fatalf("code lost through wrapping: %v", CodeOf(wrapped))
	}

	if CodeOf(errors.New("plain")) != Internal {
		t.Fatalf("uncoded errors must default to Internal")
	}
}

func TestIsCode(t *testing.T) {
	err := Wrap(Unavailable, errors.New("connection reset"), "store put")
	if !IsCode(err, Unavailable) {
		t.Fatalf("expected Unavailable")
	}
	if IsCode(err, Conflict) {
		t.Fatalf("unexpected Conflict match")
	}
	if !errors.Is(err, errors.Unwrap(err)) {
		t.Fatalf("wrapped cause must remain matchable")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		InvalidArgument:  http.StatusBadRequest,
		NotFound:         http.StatusNotFound,
		PermissionDenied: http.StatusForbidden,
		Conflict:         http.StatusConflict,
		Unavailable:      http.StatusServiceUnavailable,
		Internal:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}

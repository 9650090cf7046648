package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestWrapClassifiesAndChains(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "transform", "run", "engine exited", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	for _, fragment := range []string{"transform", "run", "engine exited", "exit status 1"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("message missing %q: %v", fragment, err)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "server", "parse options", "bad number", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("marker lost: %v", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrValidation, "", "", "bad input", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "", "", "missing", nil), http.StatusNotFound},
		{services.Wrap(services.ErrUnsupportedMedia, "", "", "not a video", nil), http.StatusUnsupportedMediaType},
		{services.Wrap(services.ErrExternalTool, "", "", "engine", nil), http.StatusBadGateway},
		{errors.New("anonymous"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

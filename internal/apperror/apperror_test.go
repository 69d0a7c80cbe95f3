package apperror

import (
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{BadRequest, http.StatusBadRequest},
		{NotFound, http.StatusNotFound},
		{Internal, http.StatusInternalServerError},
		{Code("UNMAPPED"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		err := New(tc.code, "msg")
		if got := err.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.want, got)
		}
		if err.Code() != tc.code {
			t.Errorf("code lost: %s", err.Code())
		}
		if err.Error() != "msg" || err.Message() != "msg" {
			t.Errorf("message lost: %q", err.Error())
		}
	}
}

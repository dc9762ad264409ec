package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/identity"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err   error
		want  int
		known bool
	}{
		{identity.ErrDuplicateUsername, http.StatusConflict, true},
		{fmt.Errorf("wrapped: %w", content.ErrWrongKey), http.StatusForbidden, true},
		{docstore.Persisted("diary", errors.New("disk full")), http.StatusInternalServerError, true},
		{identity.ErrRateLimited, http.StatusTooManyRequests, true},
		{errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		got, known := StatusFor(tc.err)
		if got != tc.want || known != tc.known {
			t.Fatalf("StatusFor(%v) = %d,%v want %d,%v", tc.err, got, known, tc.want, tc.known)
		}
	}
}

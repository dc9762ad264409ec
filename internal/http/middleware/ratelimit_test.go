package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/ratelimit"
	"github.com/router-for-me/DiaryHub/internal/session"
)

func throttledRouter(limiter *ratelimit.Manager, admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		SetScope(c, session.NewScope(&models.Session{UID: "u1", IsAdmin: admin}, nil))
	})
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/like", Throttle(limiter, ratelimit.ActionLike), ok)
	r.POST("/follow", Throttle(limiter, ratelimit.ActionFollow), ok)
	return r
}

func post(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec
}

func TestThrottleBlocksPerAction(t *testing.T) {
	limiter := ratelimit.NewManager(ratelimit.Policy{
		ratelimit.ActionLike:   {Limit: 1, Window: time.Hour},
		ratelimit.ActionFollow: {Limit: 1, Window: time.Hour},
	}, nil)
	r := throttledRouter(limiter, false)

	if rec := post(r, "/like"); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first like: code=%d headers=%v", rec.Code, rec.Header())
	}
	rec := post(r, "/like")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second like: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if rec = post(r, "/follow"); rec.Code != http.StatusOK {
		t.Fatalf("follow has its own budget, got %d", rec.Code)
	}
}

func TestThrottleSkipsAdminsAndNilLimiter(t *testing.T) {
	limiter := ratelimit.NewManager(ratelimit.Policy{ratelimit.ActionLike: {Limit: 1, Window: time.Hour}}, nil)
	admin := throttledRouter(limiter, true)
	open := throttledRouter(nil, false)
	for i := 0; i < 3; i++ {
		if rec := post(admin, "/like"); rec.Code != http.StatusOK {
			t.Fatalf("admin like %d: expected 200, got %d", i, rec.Code)
		}
		if rec := post(open, "/like"); rec.Code != http.StatusOK {
			t.Fatalf("unthrottled like %d: expected 200, got %d", i, rec.Code)
		}
	}
}

package website

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, register func(rb *RouteBuilder)) *Router {
	t.Helper()
	router := &Router{}
	rb := RouteBuilder{Router: router}
	register(&rb)
	rb.AnyMethod(RegexCatchAll, func(c *RequestContext) ResponseData {
		var res ResponseData
		res.StatusCode = http.StatusNotFound
		res.Write([]byte("not found"))
		return res
	})
	return router
}

func TestRouterMatching(t *testing.T) {
	var gotPostID int
	router := testRouter(t, func(rb *RouteBuilder) {
		rb.GET(RegexPost, func(c *RequestContext) ResponseData {
			gotPostID = c.PathParamInt("postid")
			var res ResponseData
			res.Write([]byte("ok"))
			return res
		})
	})

	t.Run("match with path param", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/posts/42", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 42, gotPostID)
	})

	t.Run("trailing slash matches too", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/posts/42/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong method falls through to 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/posts/42", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown path falls through to 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bogus", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("HEAD routes like GET and drops the body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/v1/posts/42", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.Bytes())
	})
}

func TestRouteRegexesRequireAnchor(t *testing.T) {
	router := &Router{}
	rb := RouteBuilder{Router: router}
	assert.Panics(t, func() {
		rb.GET(regexp.MustCompile(`/no-anchor`), func(c *RequestContext) ResponseData {
			return ResponseData{}
		})
	})
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(h Handler) Handler {
			return func(c *RequestContext) ResponseData {
				order = append(order, name)
				return h(c)
			}
		}
	}

	router := testRouter(t, func(rb *RouteBuilder) {
		wrapped := rb.WithMiddleware(mw("outer"), mw("inner"))
		wrapped.GET(RegexPosts, func(c *RequestContext) ResponseData {
			order = append(order, "handler")
			return ResponseData{}
		})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestErrorResponseMapping(t *testing.T) {
	c := &RequestContext{
		Req:    httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil),
		Logger: nil,
	}

	cases := []struct {
		kind   apperrors.Kind
		status int
	}{
		{apperrors.Validation, http.StatusUnprocessableEntity},
		{apperrors.Authentication, http.StatusUnauthorized},
		{apperrors.Authorization, http.StatusForbidden},
		{apperrors.NotFound, http.StatusNotFound},
		{apperrors.Conflict, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			res := c.ErrorResponse(apperrors.New(tc.kind, "nope"))
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Contains(t, res.Body.String(), string(tc.kind))
			assert.Contains(t, res.Body.String(), "nope")
			assert.Empty(t, res.Errors, "classified errors are client errors, not log fodder")
		})
	}

	t.Run("unclassified errors are opaque and logged", func(t *testing.T) {
		res := c.ErrorResponse(assert.AnError)
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.NotContains(t, res.Body.String(), assert.AnError.Error())
		assert.Len(t, res.Errors, 1)
	})
}

func TestFeedDefaultOrdering(t *testing.T) {
	makeCtx := func(url string) *RequestContext {
		return &RequestContext{Req: httptest.NewRequest(http.MethodGet, url, nil)}
	}

	t.Run("posts default to newest first", func(t *testing.T) {
		page, err := parsePageParams(makeCtx("/api/v1/posts"), feed.OrderNewest)
		require.NoError(t, err)
		assert.Equal(t, feed.OrderNewest, page.Order)
	})

	t.Run("comment threads default to creation order", func(t *testing.T) {
		page, err := parsePageParams(makeCtx("/api/v1/posts/1/comments"), feed.OrderOldest)
		require.NoError(t, err)
		assert.Equal(t, feed.OrderOldest, page.Order)
	})

	t.Run("explicit orderBy wins over the default", func(t *testing.T) {
		page, err := parsePageParams(makeCtx("/api/v1/posts/1/comments?orderBy=top"), feed.OrderOldest)
		require.NoError(t, err)
		assert.Equal(t, feed.OrderTop, page.Order)
	})
}

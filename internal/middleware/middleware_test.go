package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/service"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type stubAuthenticator struct {
	claims *models.JWTClaims
	err    error
	tokens []string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*models.JWTClaims, error) {
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

type recordingAuditWriter struct {
	logs []*models.AuditLog
}

func (r *recordingAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	return router
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTRequiresToken(t *testing.T) {
	auth := &stubAuthenticator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}}
	router := newRouter(JWT(auth))
	router.GET("/me", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me?access_token=stream", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"abc", "stream"}, auth.tokens)
}

func TestJWTRejectsSignedOutToken(t *testing.T) {
	router := newRouter(JWT(&stubAuthenticator{err: appErrors.ErrSignedOut}))
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer old")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrSignedOut.Code, errorCode(t, rec))
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	router := newRouter(OptionalJWT(&stubAuthenticator{err: appErrors.ErrUnauthorized}))
	router.GET("/", func(c *gin.Context) {
		_, ok := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func TestRequireUploader(t *testing.T) {
	cases := []struct {
		role   models.UserRole
		status int
	}{
		{models.RoleStudent, http.StatusForbidden},
		{models.RoleLecturer, http.StatusOK},
		{models.RoleClassRep, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			router := newRouter(withClaims(&models.JWTClaims{UserID: "u", Role: tc.role}), RequireUploader())
			router.POST("/resources", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resources", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRBACSelf(t *testing.T) {
	router := newRouter(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}), RBAC(string(models.RoleAdmin), "SELF"))
	router.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u2", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	router := newRouter(RequireRoles(models.RoleAdmin))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &recordingAuditWriter{}
	router := newRouter(withClaims(&models.JWTClaims{UserID: "u1"}))
	router.GET("/exports/:id", Audit(writer, zap.NewNop(), models.AuditActionExportDownload, "export"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/tok", nil))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/missing", nil))

	require.Len(t, writer.logs, 1)
	log := writer.logs[0]
	assert.Equal(t, models.AuditActionExportDownload, log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "u1", *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "tok", *log.ResourceID)
}

func TestResponseMetaReachesEnvelope(t *testing.T) {
	router := newRouter(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, gin.H{"meta": ExtractMeta(c)})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Contains(t, body.Meta, "processing_time_ms")
}

func TestExtractMetaIsNilWithoutMiddleware(t *testing.T) {
	router := newRouter()
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, meta)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	metricsSvc := service.NewMetricsService()
	router := newRouter(Metrics(metricsSvc))
	router.GET("/resources/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/resources/a", "/resources/b", "/health", "/no/such/page"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	assert.Equal(t, uint64(3), metricsSvc.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	metricsSvc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `path="/resources/:id",status="200"} 2`)
	assert.Contains(t, body, `path="unmatched",status="404"} 1`)
	assert.False(t, strings.Contains(body, `path="/no/such/page"`))
	assert.False(t, strings.Contains(body, `path="/health"`))
}

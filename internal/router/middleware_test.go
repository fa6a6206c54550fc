package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/echosavvy/api/internal/config"
	"github.com/echosavvy/api/internal/constants"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/repository"
	"github.com/echosavvy/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

var middlewareTestSeq int64

func setupAuthMiddlewareTest(t *testing.T) (*service.UserAuthService, repository.UserRepository, *gorm.DB, string) {
	t.Helper()
	dsn := fmt.Sprintf("file:router_mw_%d?mode=memory&cache=shared", atomic.AddInt64(&middlewareTestSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users failed: %v", err)
	}
	secret := "unit-test-secret-key-0123456789abcdef"
	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = secret
	cfg.UserJWT.ExpireHours = 1
	userRepo := repository.NewUserRepository(db)
	return service.NewUserAuthService(cfg, userRepo), userRepo, db, secret
}

func envelopeCode(t *testing.T, body []byte) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestUserJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc, userRepo, db, secret := setupAuthMiddlewareTest(t)

	user, token, _, err := authSvc.Register("alice", "13800000001", "s3cret-pass")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	r := gin.New()
	r.Use(UserJWTAuthMiddleware(secret, userRepo))
	r.GET("/me", func(c *gin.Context) {
		uid, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": uid})
	})

	// 无 Authorization 头
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)
	if code := envelopeCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("missing header: envelope code want 401 got %d", code)
	}

	// 非 Bearer 格式
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(w, req)
	if code := envelopeCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("bad scheme: envelope code want 401 got %d", code)
	}

	// 有效 Token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: status want 200 got %d", w.Code)
	}
	var resp struct {
		UserID uint `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.UserID != user.ID {
		t.Fatalf("user_id want %d got %d", user.ID, resp.UserID)
	}

	// 用户被禁用后拒绝访问
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if code := envelopeCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("disabled user: envelope code want 401 got %d", code)
	}

	// 伪造 Token
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	r.ServeHTTP(w, req)
	if code := envelopeCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("tampered token: envelope code want 401 got %d", code)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
}

func newEngine(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(cfg))
	r.GET("/who", func(c *gin.Context) {
		sess := SessionFrom(c)
		id, ok := sess.CurrentIdentity()
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.ID, "role": sess.Role(), "name": id.DisplayName})
	})
	r.GET("/provider-only", RequireRole(identity.RoleProvider), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	r := newEngine(cfg)

	clientToken, err := IssueToken(cfg, identity.Identity{ID: "c1", Role: identity.RoleClient, DisplayName: "Anna"})
	if err != nil {
		t.Fatal(err)
	}
	foreign, _ := IssueToken(&config.Config{JWTSecret: "other", TokenTTL: time.Hour}, identity.Identity{ID: "x", Role: identity.RoleClient})
	expired, _ := IssueToken(&config.Config{JWTSecret: cfg.JWTSecret, TokenTTL: -time.Hour}, identity.Identity{ID: "x", Role: identity.RoleClient})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "Bearer " + clientToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	cfg := testConfig()
	r := newEngine(cfg)

	for role, want := range map[identity.Role]int{
		identity.RoleClient:   http.StatusForbidden,
		identity.RoleProvider: http.StatusNoContent,
	} {
		token, _ := IssueToken(cfg, identity.Identity{ID: "u", Role: role})
		req := httptest.NewRequest(http.MethodGet, "/provider-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", role, want, w.Code)
		}
	}
}

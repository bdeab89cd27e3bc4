package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/service"
	"github.com/noah-isme/hrms-payroll-api/pkg/config"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := models.JWTClaims{
		EmpID: "RBIS0042",
		Role:  models.RoleHR,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "RBIS0042",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthService() *service.AuthService {
	return service.NewAuthService(nil, config.JWTConfig{Secret: testSecret, Expiration: time.Hour}, nil)
}

func runJWT(t *testing.T, header string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c.Request = req
	JWT(newAuthService())(c)
	return w, c
}

func TestJWTMissingHeader(t *testing.T) {
	w, c := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
}

func TestJWTMalformedHeader(t *testing.T) {
	w, _ := runJWT(t, "Token abcdef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidToken(t *testing.T) {
	w, c := runJWT(t, "Bearer "+signToken(t, testSecret, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)

	value, exists := c.Get(ContextUserKey)
	require.True(t, exists)
	claims := value.(*models.JWTClaims)
	assert.Equal(t, "RBIS0042", claims.EmpID)
	assert.Equal(t, models.RoleHR, claims.Role)
}

func TestJWTWrongSecret(t *testing.T) {
	w, _ := runJWT(t, "Bearer "+signToken(t, "other-secret", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTExpiredToken(t *testing.T) {
	w, _ := runJWT(t, "Bearer "+signToken(t, testSecret, time.Now().Add(-time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func runRBAC(t *testing.T, claims *models.JWTClaims, empIDParam string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if empIDParam != "" {
		c.Params = gin.Params{{Key: "emp_id", Value: empIDParam}}
	}
	RBAC(allowed...)(c)
	return w
}

func TestRBACAllowsListedRole(t *testing.T) {
	w := runRBAC(t, &models.JWTClaims{EmpID: "RBIS0001", Role: models.RoleHR}, "", "HR", "CEO")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACDeniesUnlistedRole(t *testing.T) {
	w := runRBAC(t, &models.JWTClaims{EmpID: "RBIS0001", Role: models.RoleEmployee}, "", "HR")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACSelfAccess(t *testing.T) {
	claims := &models.JWTClaims{EmpID: "RBIS0042", Role: models.RoleEmployee}

	w := runRBAC(t, claims, "RBIS0042", "SELF", "HR")
	assert.Equal(t, http.StatusOK, w.Code)

	w = runRBAC(t, claims, "RBIS0099", "SELF", "HR")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACMissingClaims(t *testing.T) {
	w := runRBAC(t, nil, "", "HR")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	c.Request = req
	c.Set(ContextUserKey, &models.JWTClaims{EmpID: "RBIS0001", Role: models.RoleSuperAdmin})

	RequireRoles(models.RoleCEO, models.RoleSuperAdmin)(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

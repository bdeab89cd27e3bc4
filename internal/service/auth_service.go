package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/pkg/config"
	appErrors "github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

// AuthService issues access tokens for directory credentials.
type AuthService struct {
	employees employeeRepository
	jwtCfg    config.JWTConfig
	logger    *zap.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(employees employeeRepository, jwtCfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{employees: employees, jwtCfg: jwtCfg, logger: logger}
}

// LoginRequest carries directory credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the issued token plus the authenticated profile.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  *models.Employee `json:"employee"`
}

// Login verifies credentials and issues a signed JWT.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	emp, err := s.employees.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "login lookup failed")
	}
	if emp.Status != "ACTIVE" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not active")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
	}

	expiresAt := time.Now().Add(s.jwtCfg.Expiration)
	claims := models.JWTClaims{
		EmpID:    emp.EmpID,
		Role:     emp.Role,
		Email:    emp.Email,
		FullName: emp.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   emp.EmpID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token signing failed")
	}
	s.logger.Info("login", zap.String("emp_id", emp.EmpID), zap.String("role", string(emp.Role)))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Employee: emp}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

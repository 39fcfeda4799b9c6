package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Principal is the identity attached to an authenticated request or
// connection.
type Principal struct {
	UserID string
	Email  string
	Admin  bool
}

type Service struct {
	store     UserStore
	jwtSecret string
	jwtExpire time.Duration
}

func NewService(store UserStore, secret string, expire time.Duration) *Service {
	return &Service{
		store:     store,
		jwtSecret: secret,
		jwtExpire: expire,
	}
}

// Register handles account creation.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		LastLogin: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates a user and issues a JWT.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.LastLogin = time.Now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"admin": user.Admin,
		"exp":   time.Now().Add(s.jwtExpire).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Token: tokenString,
		User: models.UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			Username:  user.Username,
			Admin:     user.Admin,
			CreatedAt: user.CreatedAt,
		},
	}, nil
}

// VerifyToken checks signature and expiry and resolves the principal. Both
// the REST middleware and the WebSocket gateway go through here; a failure is
// terminal for the attempt.
func (s *Service) VerifyToken(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidToken
	}

	principal := &Principal{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if admin, ok := claims["admin"].(bool); ok {
		principal.Admin = admin
	}
	return principal, nil
}

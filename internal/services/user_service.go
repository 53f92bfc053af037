package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery_orders/internal/models"
	"bakery_orders/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the JWT payload issued to signed-in users.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	Authenticate(ctx context.Context, email, password string) (string, *models.User, error)
	Resolve(ctx context.Context, token string) (*Actor, error)
}

type userService struct {
	userRepo repository.UserRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, jwtSecret string, ttl time.Duration) UserService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &userService{userRepo: userRepo, secret: []byte(jwtSecret), ttl: ttl, now: time.Now}
}

func (s *userService) CreateUser(ctx context.Context, user *models.User, password string) error {
	if strings.TrimSpace(user.Email) == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedPassword)
	if user.Status == "" {
		user.Status = models.UserActive
	}
	if user.Role == "" {
		user.Role = string(models.RoleUser)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return err
	}
	return nil
}

// Authenticate checks the credentials and issues a signed token. Unknown
// emails and wrong passwords fail the same way.
func (s *userService) Authenticate(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrUnauthenticated
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrUnauthenticated
	}
	if user.Status != models.UserActive {
		return "", nil, ErrForbidden
	}

	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// Resolve verifies the token and reloads the user, so a deactivated or
// demoted account loses access before its token expires.
func (s *userService) Resolve(ctx context.Context, token string) (*Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, ErrUnauthenticated
	}
	return &Actor{ID: user.ID, Role: models.UserRole(user.Role)}, nil
}

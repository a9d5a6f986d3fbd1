package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/plant-shop-api/internal/dto"
	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

type cartMerger interface {
	MergeGuestIntoUser(ctx context.Context, sessionID string, userID uuid.UUID) (*dto.CartResponse, error)
}

type AuthService struct {
	userRepo    repository.UserRepository
	carts       cartMerger
	jwtSecret   []byte
	jwtExpiry   time.Duration
	adminEmails map[string]bool
}

// NewAuthService wires accounts. carts may be nil, in which case login never
// merges a guest cart.
func NewAuthService(userRepo repository.UserRepository, carts cartMerger, jwtSecret string, jwtExpiry time.Duration, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &AuthService{
		userRepo:    userRepo,
		carts:       carts,
		jwtSecret:   []byte(jwtSecret),
		jwtExpiry:   jwtExpiry,
		adminEmails: admins,
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, model.ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleCustomer
	if s.adminEmails[email] {
		role = model.RoleAdmin
	}
	user := &model.User{
		Email: email, Password: string(hashed),
		FirstName: req.FirstName, LastName: req.LastName, Role: role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, wrapStore("create user", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Success: true, Token: token, User: toUserResponse(user)}, nil
}

// Login authenticates the user. A sessionId in the request folds that guest
// cart into the user's cart and returns the result.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	resp := &dto.AuthResponse{Success: true, Token: token, User: toUserResponse(user)}

	if s.carts != nil && strings.TrimSpace(req.SessionID) != "" {
		cart, err := s.carts.MergeGuestIntoUser(ctx, req.SessionID, user.ID)
		if err != nil {
			return nil, err
		}
		resp.Cart = cart
	}
	return resp, nil
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: user.ID, Email: user.Email,
		FirstName: user.FirstName, LastName: user.LastName, Role: user.Role,
	}
}

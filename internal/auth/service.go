package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/db"
)

const accessTokenTTL = 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, querier db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     querier,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (Athlete, TokenResponse, error) {
	if req.Email == "" || req.Password == "" {
		return Athlete{}, TokenResponse{}, errors.New("email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Athlete{}, TokenResponse{}, err
	}

	athlete := Athlete{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO athletes (id, email, display_name, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, athlete.ID, athlete.Email, athlete.DisplayName, athlete.PasswordHash)
	if err := row.Scan(&athlete.CreatedAt); err != nil {
		return Athlete{}, TokenResponse{}, err
	}

	tokens, err := s.issueToken(athlete.ID)
	if err != nil {
		return Athlete{}, TokenResponse{}, err
	}
	return athlete, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Athlete, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM athletes WHERE email = $1
	`, req.Email)

	var athlete Athlete
	if err := row.Scan(&athlete.ID, &athlete.Email, &athlete.DisplayName, &athlete.PasswordHash, &athlete.CreatedAt); err != nil {
		return Athlete{}, TokenResponse{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(athlete.PasswordHash), []byte(req.Password)); err != nil {
		return Athlete{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.issueToken(athlete.ID)
	if err != nil {
		return Athlete{}, TokenResponse{}, err
	}
	return athlete, tokens, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", errors.New("token invalid")
	}
	return claims.UserID, nil
}

func (s *Service) issueToken(userID string) (TokenResponse, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
	}, nil
}

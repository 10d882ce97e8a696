package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"user-identity-service/internal/utils"
)

var ErrInvalidToken = errors.New("невалидный токен")

type AuthService struct {
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(secret string, expiration time.Duration) *AuthService {
	utils.LogSuccess("AuthService", "Инициализирован сервис аутентификации (TTL: %v)", expiration)
	return &AuthService{
		jwtSecret:     secret,
		jwtExpiration: expiration,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		utils.LogError("AuthService", "Ошибка хеширования пароля", err)
		return "", err
	}
	return string(hashedPassword), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		utils.LogWarning("AuthService", "Неверный пароль")
		return err
	}
	return nil
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		utils.LogError("AuthService", "Ошибка подписи токена", err)
		return "", err
	}

	utils.LogDebug("AuthService", "JWT токен создан для пользователя: %s", userID)
	return signedToken, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		utils.LogWarning("AuthService", "Невалидный токен: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken выпускает новый токен по ещё действующему старому.
func (s *AuthService) RefreshToken(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	utils.LogInfo("AuthService", "Обновление токена для пользователя: %s", claims.UserID)
	return s.GenerateToken(claims.UserID)
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtExpiration
}

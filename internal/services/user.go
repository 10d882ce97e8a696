package services

import (
	"context"
	"errors"
	"fmt"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/utils"
)

var ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")

type UserService struct {
	userRepo    *repository.UserRepository
	authService *AuthService
}

func NewUserService(userRepo *repository.UserRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		authService: authService,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	utils.LogInfo("UserService", "Регистрация пользователя: %s", req.Username)

	passwordHash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		utils.LogError("UserService", fmt.Sprintf("Ошибка регистрации пользователя %s", req.Username), err)
		return nil, err
	}

	utils.LogSuccess("UserService", "Пользователь %s зарегистрирован (ID: %s)", user.Username, user.ID)
	return user, nil
}

// Login проверяет пароль и выпускает JWT токен.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	utils.LogInfo("UserService", "Вход пользователя: %s", req.Username)

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.authService.CheckPasswordHash(req.Password, user.PasswordHash); err != nil {
		utils.LogWarning("UserService", "Неверный пароль для пользователя %s", req.Username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.authService.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		utils.LogWarning("UserService", "Не удалось обновить время входа: %v", err)
	}

	utils.LogSuccess("UserService", "Пользователь %s вошёл в систему", req.Username)
	return &models.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.authService.TokenTTL().Seconds()),
		UserID:    user.ID,
		Username:  user.Username,
	}, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserService) Update(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Email = req.Email
	user.PhoneNumber = req.PhoneNumber
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	utils.LogSuccess("UserService", "Профиль пользователя %s обновлён", userID)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	utils.LogSuccess("UserService", "Пользователь %s удалён", userID)
	return nil
}

package services

import (
	"context"
	"errors"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/utils"
)

var ErrNotDeviceOwner = errors.New("устройство не принадлежит указанному пользователю")

type DeviceService struct {
	deviceRepo *repository.DeviceRepository
}

func NewDeviceService(deviceRepo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo}
}

func (s *DeviceService) Register(ctx context.Context, userID string, req models.RegisterDeviceRequest) (*models.Device, error) {
	utils.LogInfo("DeviceService", "Регистрация устройства %q для пользователя %s", req.Name, userID)

	deviceType := req.Type
	if deviceType == "" {
		deviceType = models.DeviceTypeOther
	}

	device := &models.Device{
		UserID:      userID,
		Name:        req.Name,
		Type:        deviceType,
		OS:          req.OS,
		DeviceModel: req.DeviceModel,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	}

	if err := s.deviceRepo.Create(ctx, device); err != nil {
		utils.LogError("DeviceService", "Ошибка регистрации устройства", err)
		return nil, err
	}

	utils.LogSuccess("DeviceService", "Устройство %s зарегистрировано", device.ID)
	return device, nil
}

func (s *DeviceService) GetUserDevices(ctx context.Context, userID string) ([]models.Device, error) {
	return s.deviceRepo.GetByUserID(ctx, userID)
}

func (s *DeviceService) Deactivate(ctx context.Context, deviceID, userID string) error {
	if err := s.verifyOwnership(ctx, deviceID, userID); err != nil {
		return err
	}
	return s.deviceRepo.SetActive(ctx, deviceID, false)
}

func (s *DeviceService) Delete(ctx context.Context, deviceID, userID string) error {
	if err := s.verifyOwnership(ctx, deviceID, userID); err != nil {
		return err
	}

	if err := s.deviceRepo.Delete(ctx, deviceID); err != nil {
		return err
	}

	utils.LogSuccess("DeviceService", "Устройство %s удалено", deviceID)
	return nil
}

func (s *DeviceService) verifyOwnership(ctx context.Context, deviceID, userID string) error {
	device, err := s.deviceRepo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.UserID != userID {
		utils.LogWarning("DeviceService", "Попытка доступа к чужому устройству %s пользователем %s", deviceID, userID)
		return ErrNotDeviceOwner
	}
	return nil
}

package services

import (
	"context"
	"errors"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/utils"
)

var ErrNotAddressOwner = errors.New("адрес не принадлежит указанному пользователю")

type AddressService struct {
	addressRepo *repository.AddressRepository
}

func NewAddressService(addressRepo *repository.AddressRepository) *AddressService {
	return &AddressService{addressRepo: addressRepo}
}

func (s *AddressService) Create(ctx context.Context, userID string, req models.AddressRequest) (*models.Address, error) {
	utils.LogInfo("AddressService", "Добавление адреса для пользователя %s", userID)

	addressType := req.Type
	if addressType == "" {
		addressType = models.AddressTypeHome
	}

	address := &models.Address{
		UserID:     userID,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Type:       addressType,
	}

	if err := s.addressRepo.Create(ctx, address); err != nil {
		utils.LogError("AddressService", "Ошибка добавления адреса", err)
		return nil, err
	}

	utils.LogSuccess("AddressService", "Адрес %s добавлен", address.ID)
	return address, nil
}

func (s *AddressService) GetUserAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	return s.addressRepo.GetByUserID(ctx, userID)
}

func (s *AddressService) Update(ctx context.Context, addressID, userID string, req models.AddressRequest) (*models.Address, error) {
	address, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		utils.LogWarning("AddressService", "Попытка изменить чужой адрес %s пользователем %s", addressID, userID)
		return nil, ErrNotAddressOwner
	}

	address.Street = req.Street
	address.City = req.City
	address.State = req.State
	address.PostalCode = req.PostalCode
	address.Country = req.Country
	if req.Type != "" {
		address.Type = req.Type
	}

	if err := s.addressRepo.Update(ctx, address); err != nil {
		return nil, err
	}

	utils.LogSuccess("AddressService", "Адрес %s обновлён", addressID)
	return address, nil
}

func (s *AddressService) Delete(ctx context.Context, addressID, userID string) error {
	address, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return err
	}
	if address.UserID != userID {
		return ErrNotAddressOwner
	}

	if err := s.addressRepo.Delete(ctx, addressID); err != nil {
		return err
	}

	utils.LogSuccess("AddressService", "Адрес %s удалён", addressID)
	return nil
}

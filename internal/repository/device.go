package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-identity-service/internal/models"
)

var ErrDeviceNotFound = errors.New("устройство не найдено")

type DeviceRepository struct {
	db *pgxpool.Pool
}

func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, user_id, name, type, os, device_model, ip_address,
       user_agent, is_active, last_login_at, created_at`

func scanDevice(row pgx.Row) (*models.Device, error) {
	device := &models.Device{}
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.Name,
		&device.Type,
		&device.OS,
		&device.DeviceModel,
		&device.IPAddress,
		&device.UserAgent,
		&device.IsActive,
		&device.LastLoginAt,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (user_id, name, type, os, device_model, ip_address, user_agent, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		device.UserID, device.Name, string(device.Type), device.OS,
		device.DeviceModel, device.IPAddress, device.UserAgent,
	).Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка регистрации устройства: %w", err)
	}

	device.IsActive = true
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	device, err := scanDevice(r.db.QueryRow(ctx, query, deviceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("ошибка получения устройства: %w", err)
	}
	return device, nil
}

func (r *DeviceRepository) GetByUserID(ctx context.Context, userID string) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения устройств: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования устройства: %w", err)
		}
		devices = append(devices, *device)
	}

	return devices, rows.Err()
}

func (r *DeviceRepository) SetActive(ctx context.Context, deviceID string, isActive bool) error {
	result, err := r.db.Exec(ctx, `UPDATE devices SET is_active = $1 WHERE id = $2`, isActive, deviceID)
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса устройства: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("ошибка удаления устройства: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

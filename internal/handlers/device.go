package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

func writeDeviceError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrDeviceNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "Устройство не найдено")
	case errors.Is(err, services.ErrNotDeviceOwner):
		writeError(ctx, fasthttp.StatusForbidden, "Нет доступа к данному устройству")
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, "Внутренняя ошибка")
	}
}

// Register обрабатывает POST /devices
func (h *DeviceHandler) Register(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.RegisterDeviceRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}
	if req.Name == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "Имя устройства обязательно")
		return
	}

	device, err := h.deviceService.Register(ctx, userID, req)
	if err != nil {
		writeDeviceError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, device)
}

// List обрабатывает GET /devices
func (h *DeviceHandler) List(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	devices, err := h.deviceService.GetUserDevices(ctx, userID)
	if err != nil {
		writeDeviceError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   len(devices),
	})
}

// Deactivate обрабатывает POST /devices/{id}/deactivate
func (h *DeviceHandler) Deactivate(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	if err := h.deviceService.Deactivate(ctx, pathParam(ctx, "id"), userID); err != nil {
		writeDeviceError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Устройство деактивировано"})
}

// Delete обрабатывает DELETE /devices/{id}
func (h *DeviceHandler) Delete(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	if err := h.deviceService.Delete(ctx, pathParam(ctx, "id"), userID); err != nil {
		writeDeviceError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Устройство удалено"})
}

package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
)

type AddressHandler struct {
	addressService *services.AddressService
}

func NewAddressHandler(addressService *services.AddressService) *AddressHandler {
	return &AddressHandler{addressService: addressService}
}

func writeAddressError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrAddressNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "Адрес не найден")
	case errors.Is(err, services.ErrNotAddressOwner):
		writeError(ctx, fasthttp.StatusForbidden, "Нет доступа к данному адресу")
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, "Внутренняя ошибка")
	}
}

// Create обрабатывает POST /addresses
func (h *AddressHandler) Create(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.AddressRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	address, err := h.addressService.Create(ctx, userID, req)
	if err != nil {
		writeAddressError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, address)
}

// List обрабатывает GET /addresses
func (h *AddressHandler) List(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	addresses, err := h.addressService.GetUserAddresses(ctx, userID)
	if err != nil {
		writeAddressError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"addresses": addresses,
		"total":     len(addresses),
	})
}

// Update обрабатывает PUT /addresses/{id}
func (h *AddressHandler) Update(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.AddressRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	address, err := h.addressService.Update(ctx, pathParam(ctx, "id"), userID, req)
	if err != nil {
		writeAddressError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, address)
}

// Delete обрабатывает DELETE /addresses/{id}
func (h *AddressHandler) Delete(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	if err := h.addressService.Delete(ctx, pathParam(ctx, "id"), userID); err != nil {
		writeAddressError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Адрес удалён"})
}

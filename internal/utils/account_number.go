package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateAccountNumber формирует читаемый номер счёта вида "SAV-1A2B3C4D":
// трёхбуквенный префикс типа счёта плюс случайный токен в верхнем регистре.
// Уникальность номер не гарантирует — её обеспечивает хранилище,
// вызывающий код повторяет генерацию при коллизии.
func GenerateAccountNumber(accountType string) string {
	prefix := strings.ToUpper(accountType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	token = strings.ToUpper(token[:8])

	return prefix + "-" + token
}

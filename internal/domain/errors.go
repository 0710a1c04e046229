package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrEmptySlip         = errors.New("bon de sortie sin líneas")

	// Reintentables: contención de bloqueos/CAS o timeout del almacén.
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	ErrTimeout             = errors.New("tiempo de espera agotado en el almacén")

	// ErrStorage falla del almacén (conexión, abort de transacción). Fatal para la petición.
	ErrStorage = errors.New("falla de almacenamiento")
)

// InsufficientStockError detalla el faltante. errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s solicitado %s disponible %s",
		ErrInsufficientStock.Error(), e.ProductID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsValidation indica entrada rechazada antes de cualquier mutación.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicate)
}

// IsRetryable indica que el caller puede reintentar la operación completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrTimeout)
}

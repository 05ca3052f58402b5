package domain

import (
	"errors"
	"fmt"
)

// ErrorKind clasifica los rechazos de una operación.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindCapacity      ErrorKind = "capacity"
	KindState         ErrorKind = "state"
	KindNotFound      ErrorKind = "not_found"
	KindDelivery      ErrorKind = "delivery"
)

// Error es el error de dominio: un Kind legible por máquina más el mensaje
// con la condición concreta que se violó.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implementa la interfaz error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap devuelve la causa subyacente.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compara por Kind, de modo que errors.Is(err, ErrCapacity) funcione con
// cualquier mensaje. Un NotFound también es un error de estado.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind || (e.Kind == KindNotFound && t.Kind == KindState)
}

// Sentinels para errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation error"}
	ErrAuthorization = &Error{Kind: KindAuthorization, Message: "authorization error"}
	ErrCapacity      = &Error{Kind: KindCapacity, Message: "capacity error"}
	ErrState         = &Error{Kind: KindState, Message: "state error"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDelivery      = &Error{Kind: KindDelivery, Message: "delivery failure"}
)

// Validationf crea un error de validación con mensaje formateado.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorizedf crea un error de autorización.
func Unauthorizedf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Capacityf crea un error de capacidad (capital insuficiente).
func Capacityf(format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

// Statef crea un error de estado.
func Statef(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf crea un error de registro inexistente.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// DeliveryFailed envuelve el fallo de una entrega programada.
func DeliveryFailed(message string, cause error) *Error {
	return &Error{Kind: KindDelivery, Message: message, Cause: cause}
}

// KindOf devuelve el Kind de err, o "" si no es un error de dominio.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

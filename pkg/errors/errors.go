package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrContractInactive = errors.New("contract is not active")
	ErrRentalNotFound   = errors.New("rental not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeContractNotFound = "CONTRACT_NOT_FOUND"
	ErrCodeContractInactive = "CONTRACT_INACTIVE"
	ErrCodeRentalNotFound   = "RENTAL_NOT_FOUND"
	ErrCodePaymentNotFound  = "PAYMENT_NOT_FOUND"
	ErrCodeCustomerNotFound = "CUSTOMER_NOT_FOUND"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeCacheError       = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapContractNotFound(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractNotFound,
		fmt.Sprintf("Contract with ID %s not found", contractID),
		ErrContractNotFound,
	)
}

func WrapContractInactive(contractID string) *BusinessError {
	return NewBusinessError(
		ErrCodeContractInactive,
		fmt.Sprintf("Contract with ID %s is not active", contractID),
		ErrContractInactive,
	)
}

func WrapRentalNotFound(rentalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRentalNotFound,
		fmt.Sprintf("Rental with ID %s not found", rentalID),
		ErrRentalNotFound,
	)
}

func WrapCustomerNotFound(customerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with ID %s not found", customerID),
		ErrCustomerNotFound,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}

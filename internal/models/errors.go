package models

import "errors"

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not allowed")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAddress  = errors.New("invalid address selected")
	ErrPaymentInit     = errors.New("payment initialization failed")

	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")

	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

package validator

import (
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate checks field shape only. Date parsing and ordering are left to the
// service so that each failure maps to its own error kind.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	return validation.Struct(v.validate, req)
}

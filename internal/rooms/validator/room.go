package validator

import (
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type RoomValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRoomValidator(log *logger.Logger) *RoomValidator {
	log.Info("Room validator initialized successfully")

	return &RoomValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *RoomValidator) Validate(room *model.Room) error {
	return validation.Struct(v.validate, room)
}

func (v *RoomValidator) ValidateUpdate(update *model.RoomUpdate) error {
	return validation.Struct(v.validate, update)
}

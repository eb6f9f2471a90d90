package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/models"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`) // E.164 format
)

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("phone", validatePhone)
	_ = Validate.RegisterValidation("user_role", validateUserRole)
	_ = Validate.RegisterValidation("ride_status", validateRideStatus)
}

// ValidateStruct validates a struct and returns a ValidationError AppError on failure
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		return common.NewValidationError(formatErrors(validationErrors))
	}
	return err
}

func formatErrors(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on the '%s' rule", fieldErr.Field(), fieldErr.Tag()))
	}
	return strings.Join(messages, "; ")
}

// validatePhone checks if phone number is in E.164 format
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// validateUserRole checks if the role is one the system knows
func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.RoleRider, models.RoleCaptain, models.RoleAdmin:
		return true
	}
	return false
}

// validateRideStatus checks if ride status is valid
func validateRideStatus(fl validator.FieldLevel) bool {
	switch models.RideStatus(fl.Field().String()) {
	case models.RideStatusPending, models.RideStatusOffered, models.RideStatusAccepted,
		models.RideStatusExpired, models.RideStatusCancelled:
		return true
	}
	return false
}

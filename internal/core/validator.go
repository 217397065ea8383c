package core

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"cropguard/internal/types"
)

// Validator wraps go-playground/validator and translates its field errors
// into the structured AppError shape handlers return to clients.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with struct-tag validation enabled.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates dst against its `validate` tags. On failure it
// returns a single AppError whose details map each offending field to the
// rule it violated.
func (v *Validator) ValidateStruct(dst interface{}) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: dst was not a struct. Programmer error.
		v.logger.Error("validator received non-struct value", "error", err.Error())
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(fieldErrs))
	code := types.ErrCodeValidationInvalidBody
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
		switch fe.Tag() {
		case "required":
			code = types.ErrCodeValidationMissingField
		case "oneof":
			code = types.ErrCodeValidationInvalidEnum
		case "min", "max", "gte", "lte", "gt", "lt":
			code = types.ErrCodeValidationOutOfRange
		}
	}

	return types.NewAppErrorWithDetails(code, "request validation failed", err, details)
}

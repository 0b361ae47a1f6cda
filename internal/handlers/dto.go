package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutristreak/internal/apperror"
	"nutristreak/internal/calendar"
	"nutristreak/internal/middleware"
	"nutristreak/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type entryRequest struct {
	LocalDate string   `json:"local_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MealType  string   `json:"meal_type" validate:"required,oneof=breakfast lunch dinner snack"`
	FoodName  string   `json:"food_name" validate:"required,max=200"`
	Calories  float64  `json:"calories" validate:"gte=0,lte=20000"`
	Protein   float64  `json:"protein" validate:"gte=0,lte=2000"`
	Carbs     *float64 `json:"carbs,omitempty" validate:"omitempty,gte=0,lte=2000"`
	Fats      *float64 `json:"fats,omitempty" validate:"omitempty,gte=0,lte=2000"`
}

func (req entryRequest) toModel(userID int64, d calendar.Day) models.LogEntry {
	return models.LogEntry{
		UserID:    userID,
		LocalDate: d,
		MealType:  models.MealType(req.MealType),
		FoodName:  strings.TrimSpace(req.FoodName),
		Calories:  req.Calories,
		Protein:   req.Protein,
		Carbs:     req.Carbs,
		Fats:      req.Fats,
	}
}

type waterRequest struct {
	LocalDate string  `json:"local_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AmountML  float64 `json:"amount_ml" validate:"gt=0,lte=10000"`
}

type goalsRequest struct {
	Calories float64 `json:"calories" validate:"gte=0,lte=20000"`
	Protein  float64 `json:"protein" validate:"gte=0,lte=2000"`
	Carbs    float64 `json:"carbs" validate:"gte=0,lte=2000"`
	Fats     float64 `json:"fats" validate:"gte=0,lte=2000"`
	WaterML  float64 `json:"water_ml" validate:"gte=0,lte=20000"`
}

func (req goalsRequest) toModel(userID int64) models.UserGoals {
	return models.UserGoals{
		UserID:   userID,
		Calories: req.Calories,
		Protein:  req.Protein,
		Carbs:    req.Carbs,
		Fats:     req.Fats,
		WaterML:  req.WaterML,
	}
}

type importRequest struct {
	Goals   *goalsRequest  `json:"goals" validate:"omitempty"`
	Entries []entryRequest `json:"entries" validate:"max=5000,dive"`
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// The returned error is already an *apperror.AppError with status 400.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.New(http.StatusBadRequest, "invalid request body", apperror.ErrInvalidInput)
	}
	if err := validate.Struct(dst); err != nil {
		return apperror.New(http.StatusBadRequest, formatValidationError(err), apperror.ErrInvalidInput)
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonFieldName(field string) string {
	names := map[string]string{
		"LocalDate": "local_date",
		"MealType":  "meal_type",
		"FoodName":  "food_name",
		"AmountML":  "amount_ml",
		"WaterML":   "water_ml",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return strings.ToLower(field)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err onto a status code and logs anything the client did
// not cause.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := apperror.MapErrorToStatus(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", code), zap.Error(err))
	}
	msg := err.Error()
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if code == http.StatusServiceUnavailable {
		msg = "storage temporarily unavailable"
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func userID(r *http.Request) (int64, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperror.New(http.StatusUnauthorized, "unauthorized", apperror.ErrUnauthorized)
	}
	return id, nil
}

// entryDay resolves a request's local_date against the server's current day.
// An empty value means today; days after today are rejected so every write
// lands inside the windows streaks and achievements are computed over.
func entryDay(raw string, today calendar.Day) (calendar.Day, error) {
	if raw == "" {
		return today, nil
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Day{}, apperror.New(http.StatusBadRequest, "local_date must be a date in YYYY-MM-DD format", apperror.ErrInvalidInput)
	}
	if d.After(today) {
		return calendar.Day{}, apperror.New(http.StatusBadRequest, fmt.Sprintf("local_date %s is after today (%s)", d, today), apperror.ErrInvalidInput)
	}
	return d, nil
}

// dayParam parses an optional YYYY-MM-DD query parameter, falling back to def.
func dayParam(r *http.Request, name string, def calendar.Day) (calendar.Day, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Day{}, apperror.New(http.StatusBadRequest, fmt.Sprintf("invalid %s; expected YYYY-MM-DD", name), apperror.ErrInvalidInput)
	}
	return d, nil
}

package services

import "errors"

var (
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrUserNotFound           = errors.New("user not found")
	ErrUsernameTaken          = errors.New("username already exists")
	ErrInvalidUsername        = errors.New("username must be 3-32 characters of letters, digits, '.', '_' or '-'")
	ErrInvalidPassword        = errors.New("password must be 6-72 characters")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrTermsNotAccepted       = errors.New("terms must be accepted")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrInvalidStage           = errors.New("invalid survey stage")
	ErrNoAnswers              = errors.New("at least one answer is required")
	ErrUnknownQuestion        = errors.New("question does not belong to this survey")
	ErrInvalidAnswer          = errors.New("answer is not valid for the question")
	ErrInitialSurveyRequired  = errors.New("initial survey must be completed first")
	ErrItemNameRequired       = errors.New("item name is required")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrInvalidCost            = errors.New("cost must not be negative")
	ErrInvalidDate            = errors.New("date must be YYYY-MM-DD")
	ErrPurchaseDateOutOfRange = errors.New("purchase date must be within the past 7 days")
	ErrPurchaseNotFound       = errors.New("purchase not found")
	ErrInvalidAction          = errors.New("action must be consumed or wasted")
	ErrInvalidPercentage      = errors.New("percentage must be between 1 and 100")
	ErrInvalidBarcode         = errors.New("barcode must be 8-14 digits")
	ErrProductNotFound        = errors.New("product not found")
	ErrUpstreamUnavailable    = errors.New("product database unavailable")
	ErrStreakContention       = errors.New("streak update kept conflicting")
)

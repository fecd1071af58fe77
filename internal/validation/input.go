package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxFlagReasonLength    = 1000
	MaxDecisionNotesLength = 5000
	MaxSearchLength        = 200
	DefaultPageLimit       = 20
	MaxPageLimit           = 100
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateFlagReason проверяет причину пометки копии.
func ValidateFlagReason(reason string) error {
	if err := ValidateNonEmpty("причина пометки", reason); err != nil {
		return err
	}
	return ValidateLength("причина пометки", strings.TrimSpace(reason), 0, MaxFlagReasonLength)
}

// ValidateDecisionNotes проверяет необязательный комментарий к решению.
func ValidateDecisionNotes(notes *string) error {
	if notes == nil {
		return nil
	}
	return ValidateLength("комментарий к решению", strings.TrimSpace(*notes), 0, MaxDecisionNotesLength)
}

// NormalizeSearch обрезает пробелы и проверяет длину поисковой строки.
func NormalizeSearch(search string) (string, error) {
	search = strings.TrimSpace(search)
	if err := ValidateLength("поисковый запрос", search, 0, MaxSearchLength); err != nil {
		return "", err
	}
	return search, nil
}

// NormalizePage приводит limit/offset к допустимым значениям.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

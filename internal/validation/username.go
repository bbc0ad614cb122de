package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	// ErrInvalidUsername username не соответствует требованиям
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword пароль не соответствует требованиям
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidKind тип записи не соответствует требованиям
	ErrInvalidKind = errors.New("invalid record kind")
)

// UsernamePattern определяет допустимый формат username
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// KindPattern допустимый формат Record.Kind: snake_case до 32 символов
var KindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen ограничивает вход argon2id
	MaxPasswordLen = 256
)

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUsername)
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidUsername, MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("%w: username must not exceed %d characters", ErrInvalidUsername, MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)", ErrInvalidUsername)
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidPassword)
	}

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidPassword, MinPasswordLen)
	}
	if n > MaxPasswordLen {
		return fmt.Errorf("%w: password must not exceed %d characters", ErrInvalidPassword, MaxPasswordLen)
	}

	return nil
}

// ValidateKind проверяет тип записи
func ValidateKind(kind string) error {
	if !KindPattern.MatchString(kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// Package validation содержит функции валидации входных данных.
package validation

// Границы длины промокода.
const (
	minCodeLen = 3
	maxCodeLen = 32
)

// IsValidPromoCode проверяет формат промокода: заглавные латинские буквы,
// цифры и дефис, длина от 3 до 32 символов. Ввод пользователя приводится
// к верхнему регистру до проверки.
func IsValidPromoCode(code string) bool {
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}

	return true
}

// Package rut valida y formatea el Rol Único Tributario chileno (RUT).
package rut

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Errores de validación del RUT.
var (
	ErrEmpty    = errors.New("rut: vacío")
	ErrFormat   = errors.New("rut: formato inválido")
	ErrCheckDig = errors.New("rut: dígito verificador inválido")
)

// Normalize elimina puntos, guiones y espacios y pasa el DV a mayúscula.
// "12.345.678-k" -> "12345678K".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '-' || unicode.IsSpace(r):
			continue
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// Split separa un RUT normalizado en cuerpo y dígito verificador.
func Split(s string) (body string, dv byte, err error) {
	n := Normalize(s)
	if n == "" {
		return "", 0, ErrEmpty
	}
	if len(n) < 8 || len(n) > 9 {
		return "", 0, fmt.Errorf("%w: se esperan 7 u 8 dígitos más DV, se recibió %q", ErrFormat, s)
	}
	body, dv = n[:len(n)-1], n[len(n)-1]
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return "", 0, fmt.Errorf("%w: cuerpo no numérico %q", ErrFormat, body)
		}
	}
	if !(dv >= '0' && dv <= '9') && dv != 'K' {
		return "", 0, fmt.Errorf("%w: DV %q", ErrFormat, dv)
	}
	return body, dv, nil
}

// ComputeCheckDigit calcula el DV (módulo 11, pesos 2..7 de derecha a izquierda).
// Devuelve '0'..'9' o 'K'.
func ComputeCheckDigit(body string) (byte, error) {
	if body == "" {
		return 0, ErrEmpty
	}
	sum, mult := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: cuerpo no numérico %q", ErrFormat, body)
		}
		sum += int(c-'0') * mult
		if mult == 7 {
			mult = 2
		} else {
			mult++
		}
	}
	switch res := 11 - sum%11; res {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + res), nil
	}
}

// Validate verifica formato y dígito verificador.
// Acepta "12345678-5", "12.345.678-5" o "123456785".
func Validate(s string) error {
	body, dv, err := Split(s)
	if err != nil {
		return err
	}
	expected, err := ComputeCheckDigit(body)
	if err != nil {
		return err
	}
	if expected != dv {
		return fmt.Errorf("%w: esperado %c, recibido %c", ErrCheckDig, expected, dv)
	}
	return nil
}

// IsValid es la forma booleana de Validate.
func IsValid(s string) bool { return Validate(s) == nil }

// Format devuelve el RUT con puntos de miles y guión: "12.345.678-5".
// Si la entrada tiene menos de dos caracteres útiles se devuelve normalizada.
func Format(s string) string {
	n := Normalize(s)
	if len(n) < 2 {
		return n
	}
	body, dv := n[:len(n)-1], n[len(n)-1:]
	var parts []string
	for len(body) > 3 {
		parts = append([]string{body[len(body)-3:]}, parts...)
		body = body[:len(body)-3]
	}
	parts = append([]string{body}, parts...)
	return strings.Join(parts, ".") + "-" + dv
}

// Canonical valida el RUT y devuelve la forma de almacenamiento "12345678-5" (sin ceros a la izquierda).
func Canonical(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	body, dv, err := Split(s)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return fmt.Sprintf("%d-%c", n, dv), nil
}

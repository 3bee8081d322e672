// Package formcheck contiene las validaciones de formularios de registro:
// email, teléfono chileno y requisitos/fuerza de contraseña.
package formcheck

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"
)

var (
	mobileCLRe = regexp.MustCompile(`^(\+?56)?0?9\d{8}$`)
	fixedCLRe  = regexp.MustCompile(`^(\+?56)?\d{9}$`)
	tokenSepRe = regexp.MustCompile(`[\s@._-]+`)
)

// contraseñas frecuentes que restan puntaje
var commonPasswords = []string{
	"password", "123456", "qwerty", "admin", "welcome",
	"abc123", "111111", "iloveyou", "12345678", "000000",
}

// Email valida la forma usuario@dominio.tld.
func Email(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.ContainsAny(v, " \t") {
		return false
	}
	return govalidator.IsEmail(v)
}

// PhoneCL acepta celulares (+56 9 XXXXXXXX) y líneas fijas de 9 dígitos.
func PhoneCL(v string) bool {
	v = strings.Join(strings.Fields(v), "")
	return mobileCLRe.MatchString(v) || fixedCLRe.MatchString(v)
}

// PasswordRequirements detalla los requisitos mínimos: 8+ caracteres, letras y números.
type PasswordRequirements struct {
	OK      bool
	Length  bool
	Letters bool
	Digits  bool
}

// CheckPassword evalúa los requisitos mínimos.
func CheckPassword(p string) PasswordRequirements {
	var letters, digits bool
	for _, r := range p {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letters = true
		case unicode.IsDigit(r):
			digits = true
		}
	}
	length := len([]rune(p)) >= 8
	return PasswordRequirements{
		OK:      length && letters && digits,
		Length:  length,
		Letters: letters,
		Digits:  digits,
	}
}

// PasswordScore devuelve la fuerza de la contraseña en 0..4.
// ctx es texto del formulario (email, nombre, razón social); si la contraseña
// contiene alguno de sus fragmentos de 3+ caracteres pierde un punto.
func PasswordScore(p, ctx string) int {
	if p == "" {
		return 0
	}
	score := 0
	n := len([]rune(p))
	if n >= 8 {
		score++
	}
	if n >= 10 {
		score++
	}
	if n >= 14 {
		score++
	}

	var lower, upper, digit, sym bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			sym = true
		}
	}
	kinds := 0
	for _, k := range []bool{lower, upper, digit, sym} {
		if k {
			kinds++
		}
	}
	if kinds >= 2 {
		score++
	}
	if kinds >= 3 {
		score++
	}

	lp := strings.ToLower(p)
	if ctx != "" {
		for _, tok := range tokenSepRe.Split(strings.ToLower(ctx), -1) {
			if len(tok) >= 3 && strings.Contains(lp, tok) {
				score--
				break
			}
		}
	}
	for _, c := range commonPasswords {
		if strings.Contains(lp, c) {
			score = max(0, score-2)
			break
		}
	}
	return min(4, max(0, score))
}

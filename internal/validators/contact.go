package validators

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	handleRe = regexp.MustCompile(`^@[A-Za-z0-9_]{3,32}$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,18}[0-9]$`)
)

// New returns a validator that also knows the "contact" tag.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("contact", validContact)
	return v
}

// IsContact reports whether s looks like a messenger handle, a phone number
// or an e-mail address.
func IsContact(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "@"):
		return handleRe.MatchString(s)
	case strings.Contains(s, "@"):
		return isEmail(s)
	default:
		return phoneRe.MatchString(s)
	}
}

func isEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(s, " \t")
}

func validContact(fl validator.FieldLevel) bool {
	return IsContact(fl.Field().String())
}

package session

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Initials builds the avatar label: first letters of the first two name words,
// else the first two letters of the email, else "U".
func Initials(name, email string) string {
	if words := strings.Fields(name); len(words) > 0 {
		if len(words) > 2 {
			words = words[:2]
		}
		var b strings.Builder
		for _, w := range words {
			r, _ := utf8.DecodeRuneInString(w)
			b.WriteRune(unicode.ToUpper(r))
		}
		return b.String()
	}

	email = strings.TrimSpace(email)
	if email != "" {
		local, _, _ := strings.Cut(email, "@")
		if local == "" {
			local = email
		}
		runes := []rune(local)
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return strings.ToUpper(string(runes))
	}
	return "U"
}

// Initials of the session user.
func (s *Session) Initials() string {
	if s == nil {
		return "U"
	}
	return Initials(s.Name, s.Email)
}

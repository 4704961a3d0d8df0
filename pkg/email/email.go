// Package email derives presentable values from mail addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName turns the local part of an address into a name, e.g.
// "ada.lovelace+food@example.org" becomes "Ada Lovelace". Tags after '+'
// are ignored. It returns "" when nothing usable remains.
func DisplayName(address string) string {
	local := strings.TrimSpace(address)
	if at := strings.LastIndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

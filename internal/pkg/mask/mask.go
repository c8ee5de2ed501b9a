package mask

import "strings"

// Email keeps the first two characters of the local part and the domain:
// "john@example.com" becomes "jo***@example.com". Input without an "@" at or after
// the second character is returned unchanged.
func Email(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 2 {
		return email
	}
	return email[:2] + "***" + email[at:]
}

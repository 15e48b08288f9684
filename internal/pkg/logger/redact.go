package logger

import (
	"regexp"
	"strings"
)

// emailPattern finds addresses embedded in free text such as error strings.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail keeps the first two characters of the local part and the
// domain of a lead address: "john.doe@example.com" becomes
// "jo***@example.com". Local parts of two characters or fewer are fully
// masked, and anything without exactly one '@' becomes "***@***".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// redactPIIValue masks emails in a field value. A lone address under a key
// naming an email is masked even when emailPattern misses it ("a@localhost").
func redactPIIValue(key, val string) string {
	if strings.Contains(strings.ToLower(key), "email") &&
		strings.Count(val, "@") == 1 && !strings.ContainsAny(val, " ,") {
		return RedactEmail(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}

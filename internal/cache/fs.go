package cache

import (
	"fmt"
	"strings"
)

// FileName turns a job ID into a file name stem. Letters, digits, '-', '_' and '.' are kept and every other
// byte is percent-encoded, so distinct IDs never share a file. The empty ID maps to "%", which no other ID
// produces.
func FileName(jobID string) string {
	if jobID == "" {
		return "%"
	}
	var b strings.Builder
	for i := 0; i < len(jobID); i++ {
		c := jobID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

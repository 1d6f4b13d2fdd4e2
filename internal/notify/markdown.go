package notify

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// ToHTML renders the report's Markdown for clients that show formatted bodies.
func ToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

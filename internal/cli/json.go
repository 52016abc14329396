package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// jsonToken matches object keys (with their colon), string values, literals
// and numbers.
var jsonToken = regexp.MustCompile(`("(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?)`)

// HighlightJSON colors a JSON document for the terminal. It returns the input
// unchanged when colors are off.
func HighlightJSON(doc string) string {
	if !Enabled() {
		return doc
	}

	return jsonToken.ReplaceAllStringFunc(doc, func(tok string) string {
		switch {
		case strings.HasSuffix(tok, ":"):
			return Style(tok[:len(tok)-1], Blue) + ":"
		case strings.HasPrefix(tok, `"`):
			return Style(tok, Green)
		case tok == "true" || tok == "false":
			return Style(tok, Yellow)
		case tok == "null":
			return Style(tok, DimCode)
		default:
			return Style(tok, Purple)
		}
	})
}

// PrettyFormat renders v as indented, highlighted JSON. Byte slices and
// strings are assumed to hold JSON already.
func PrettyFormat(v any) string {
	var doc string
	switch t := v.(type) {
	case []byte:
		doc = string(t)
	case string:
		doc = t
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%+v", v)
		}
		doc = string(b)
	}
	return HighlightJSON(doc)
}

// Fprint writes PrettyFormat(v) and a newline to w.
func Fprint(w io.Writer, v any) {
	fmt.Fprintln(w, PrettyFormat(v))
}

// MaskSecret keeps the last four characters of an API key.
func MaskSecret(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

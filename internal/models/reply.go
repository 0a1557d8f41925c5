package models

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	escapedWhitespace = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

	lineBreak      = regexp.MustCompile(`\r?\n`)
	bareURLPattern = regexp.MustCompile(`https?://[\w\-._~:/?#\[\]@!$&'()*+,;=%]+`)

	// Four leading whitespace characters, counting Unicode spaces such as U+00A0 and the BOM.
	indentedLine = regexp.MustCompile(`^[\t\n\v\f\r \p{Z}\x{FEFF}]{4}`)
)

const codeFence = "```"

// FormatReply normalizes raw model output into markdown that renders well in a chat bubble. The rules are
// applied in order and the first one that produces a result wins:
//
//   - empty input yields an empty string;
//   - literal `\n` and `\t` sequences become real newlines and tabs;
//   - text that already contains a code fence is returned as is;
//   - text that is entirely a JSON object or array is pretty-printed inside a json fence;
//   - if any line is indented by four or more whitespace characters, the whole text becomes a single code block;
//   - otherwise bare http(s) URLs are wrapped in angle brackets and the result is trimmed.
//
// JSON-looking text that fails to parse falls through to the later rules.
func FormatReply(raw string) string {
	if raw == "" {
		return ""
	}

	s := escapedWhitespace.Replace(raw)

	if strings.Contains(s, codeFence) {
		return s
	}

	if out, ok := formatJSON(strings.TrimSpace(s)); ok {
		return out
	}

	// Any indented line turns the whole message into one block, even when the rest is prose.
	lines := lineBreak.Split(s, -1)
	for _, l := range lines {
		if !indentedLine.MatchString(l) {
			continue
		}
		for i := range lines {
			lines[i] = indentedLine.ReplaceAllString(lines[i], "")
		}
		return codeFence + "\n" + strings.Join(lines, "\n") + "\n" + codeFence
	}

	s = bareURLPattern.ReplaceAllString(s, "<${0}>")

	return strings.TrimSpace(s)
}

func formatJSON(s string) (string, bool) {
	isObject := strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
	isArray := strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
	if !isObject && !isArray {
		return "", false
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, []byte(s), "", "  "); err != nil {
		return "", false
	}

	return codeFence + "json\n" + prettyJSON.String() + "\n" + codeFence, true
}

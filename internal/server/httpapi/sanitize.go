package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/runavault/runavault/internal/common"
)

// maxBodySize caps request bodies; vault payloads are small ciphertext blobs.
const maxBodySize = 1 << 20

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	`\`, "&#92;",
	"`", "&#96;",
)

// SanitizeString escapes the characters that could carry markup or escape
// sequences into stored values. Ciphertext envelopes never contain them, so
// legitimate payloads pass through unchanged.
func SanitizeString(s string) string {
	return htmlEscaper.Replace(s)
}

// sanitizeValue walks a decoded JSON value and escapes every string in it,
// including map keys' values and array elements.
func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return SanitizeString(t)
	case []any:
		for i := range t {
			t[i] = sanitizeValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = sanitizeValue(t[k])
		}
		return t
	default:
		return v
	}
}

// parseBody decodes the request body into dst with every string value
// sanitized first. Malformed JSON is a validation error.
func parseBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: failed to read body", common.ErrValidation)
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: body is not valid JSON", common.ErrValidation)
	}
	clean, err := json.Marshal(sanitizeValue(decoded))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if err := json.Unmarshal(clean, dst); err != nil {
		return fmt.Errorf("%w: body is not valid JSON", common.ErrValidation)
	}
	return nil
}

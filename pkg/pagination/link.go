package pagination

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
)

// Link relation names used by Canvas.
const (
	RelNext    = "next"
	RelPrev    = "prev"
	RelFirst   = "first"
	RelLast    = "last"
	RelCurrent = "current"
)

// ParseLinks parses a Link header value into a relation -> URL map.
// Entries without a rel parameter or without an angle-bracketed URL are
// skipped. When a relation appears twice the first entry wins.
func ParseLinks(header string) map[string]string {
	links := make(map[string]string)
	if header == "" {
		return links
	}

	for _, part := range strings.Split(header, ",") {
		seg := strings.Split(strings.TrimSpace(part), ";")
		if len(seg) < 2 {
			continue
		}

		target := strings.TrimSpace(seg[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		target = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
		if target == "" {
			continue
		}

		for _, param := range seg[1:] {
			kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
			if len(kv) != 2 || !strings.EqualFold(strings.TrimSpace(kv[0]), "rel") {
				continue
			}
			// rel may carry several space-separated relation types
			for _, rel := range strings.Fields(strings.Trim(kv[1], `"`)) {
				rel = strings.ToLower(rel)
				if _, seen := links[rel]; !seen {
					links[rel] = target
				}
			}
		}
	}

	return links
}

// NextLink returns the URL tagged rel="next" in a Link header, or "".
func NextLink(header string) string {
	return ParseLinks(header)[RelNext]
}

// IsJSON reports whether a Content-Type header value denotes JSON.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// ShouldResolve reports whether a successful response is a paginated list:
// a JSON content type, an array body, and a rel="next" link. File downloads
// and other non-JSON bodies are never paginated.
func ShouldResolve(header http.Header, body []byte) bool {
	if !IsJSON(header.Get("Content-Type")) {
		return false
	}
	if !isArray(body) {
		return false
	}
	return NextLink(header.Get("Link")) != ""
}

func isArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

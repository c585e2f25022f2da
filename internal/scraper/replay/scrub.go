package replay

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "REDACTED"

// sensitiveKey matches query, form and JSON keys that carry the member's
// session or account. Sportsbooks put the session id in query strings.
var sensitiveKey = regexp.MustCompile(`(?i)(pass(wd|word)?|secret|token|sess(ion)?|auth|jwt|bearer|api_?key|credential|uid|member_?id|user(name)?|balance|credit)`)

var jsonPair = regexp.MustCompile(`"([^"]+)"\s*:\s*("(?:[^"\\]|\\.)*"|-?[0-9][0-9.eE+-]*|true|false)`)

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,
}

// Scrub returns a copy of a with session cookies, tokens and account values
// replaced by a marker. Bodies stay otherwise intact so event lists replay.
func Scrub(a *Archive) *Archive {
	out := &Archive{Entries: make([]Entry, len(a.Entries))}
	for i, e := range a.Entries {
		out.Entries[i] = Entry{
			Request: Request{
				Method:  e.Request.Method,
				URL:     scrubURL(e.Request.URL),
				Headers: scrubHeaders(e.Request.Headers),
				Body:    scrubBody(e.Request.Body),
			},
			Response: Response{
				Status:  e.Response.Status,
				Headers: scrubHeaders(e.Response.Headers),
				Content: e.Response.Content,
			},
		}
		if e.Response.Content.Encoding != "base64" {
			out.Entries[i].Response.Content.Text = scrubBody(e.Response.Content.Text)
		}
	}
	return out
}

// Redactions counts how many scrubbed values differ between two archives of
// the same shape.
func Redactions(before, after *Archive) int {
	n := 0
	for i := range before.Entries {
		if i >= len(after.Entries) {
			break
		}
		b, a := before.Entries[i], after.Entries[i]
		n += strings.Count(a.Request.URL, redacted) - strings.Count(b.Request.URL, redacted)
		n += strings.Count(a.Request.Body, redacted) - strings.Count(b.Request.Body, redacted)
		n += strings.Count(a.Response.Content.Text, redacted) - strings.Count(b.Response.Content.Text, redacted)
		for j := range a.Request.Headers {
			if a.Request.Headers[j].Value == redacted && b.Request.Headers[j].Value != redacted {
				n++
			}
		}
		for j := range a.Response.Headers {
			if a.Response.Headers[j].Value == redacted && b.Response.Headers[j].Value != redacted {
				n++
			}
		}
	}
	return n
}

func scrubURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for key := range q {
		if sensitiveKey.MatchString(key) {
			q.Set(key, redacted)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func scrubHeaders(headers []Header) []Header {
	if headers == nil {
		return nil
	}
	out := make([]Header, len(headers))
	for i, h := range headers {
		out[i] = h
		if sensitiveHeaders[strings.ToLower(h.Name)] || sensitiveKey.MatchString(h.Name) {
			out[i].Value = redacted
		}
	}
	return out
}

func scrubBody(body string) string {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return body
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return jsonPair.ReplaceAllStringFunc(body, func(pair string) string {
			m := jsonPair.FindStringSubmatch(pair)
			if !sensitiveKey.MatchString(m[1]) {
				return pair
			}
			return `"` + m[1] + `":"` + redacted + `"`
		})
	case strings.Contains(body, "=") && !strings.ContainsAny(trimmed, "<>"):
		values, err := url.ParseQuery(body)
		if err != nil {
			return body
		}
		for key := range values {
			if sensitiveKey.MatchString(key) {
				values.Set(key, redacted)
			}
		}
		return values.Encode()
	}
	return body
}

package replay

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const maxRedirects = 10

// Replayer answers page requests from an Archive.
type Replayer struct {
	exact       map[string]*Entry
	byPath      map[string]*Entry
	passthrough bool
	log         *zap.Logger
}

type Option func(*Replayer)

// WithPassthrough lets unmatched requests reach the network instead of
// failing with 404.
func WithPassthrough(enabled bool) Option {
	return func(r *Replayer) { r.passthrough = enabled }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Replayer) { r.log = log }
}

// New indexes a by full URL and by URL without query. For the path index the
// first recorded entry wins.
func New(a *Archive, opts ...Option) *Replayer {
	r := &Replayer{
		exact:  make(map[string]*Entry),
		byPath: make(map[string]*Entry),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range a.Entries {
		e := &a.Entries[i]
		r.exact[e.Request.URL] = e
		if key, ok := pathKey(e.Request.URL); ok {
			if _, seen := r.byPath[key]; !seen {
				r.byPath[key] = e
			}
		}
	}
	return r
}

// Hijacker is a page or a whole browser.
type Hijacker interface {
	HijackRequests() *rod.HijackRouter
}

// Route installs the replayer on target and starts serving. Stop the
// returned router when done.
func (r *Replayer) Route(target Hijacker) *rod.HijackRouter {
	router := target.HijackRequests()
	router.MustAdd("*", r.Handle)
	go router.Run()
	return router
}

// Handle serves one hijacked request.
func (r *Replayer) Handle(h *rod.Hijack) {
	reqURL := h.Request.URL().String()

	entry := r.lookup(reqURL)
	if entry == nil {
		if r.passthrough {
			r.log.Debug("replay miss, passing through", zap.String("url", reqURL))
			_ = h.LoadResponse(http.DefaultClient, true)
			return
		}
		r.log.Debug("replay miss", zap.String("url", reqURL))
		notFound(h)
		return
	}

	entry = r.resolveRedirects(entry)
	r.log.Debug("replay hit", zap.String("url", reqURL), zap.Int("status", entry.Response.Status))
	serve(h, entry.Response)
}

func (r *Replayer) lookup(rawURL string) *Entry {
	if e, ok := r.exact[rawURL]; ok {
		return e
	}
	if key, ok := pathKey(rawURL); ok {
		return r.byPath[key]
	}
	return nil
}

// resolveRedirects follows recorded 3xx responses to the final entry. It
// stops at the first redirect whose target was not recorded.
func (r *Replayer) resolveRedirects(e *Entry) *Entry {
	for i := 0; i < maxRedirects; i++ {
		if e.Response.Status < 300 || e.Response.Status >= 400 {
			return e
		}
		location := header(e.Response.Headers, "location")
		if location == "" {
			return e
		}
		next := r.lookup(location)
		if next == nil {
			r.log.Debug("redirect target not recorded", zap.String("location", location))
			return e
		}
		e = next
	}
	return e
}

// Stats reports the size of both indexes.
func (r *Replayer) Stats() (exact, byPath int) {
	return len(r.exact), len(r.byPath)
}

func serve(h *rod.Hijack, resp Response) {
	body := []byte(resp.Content.Text)
	if resp.Content.Encoding == "base64" {
		if decoded, err := base64.StdEncoding.DecodeString(resp.Content.Text); err == nil {
			body = decoded
		}
	}

	payload := h.Response.Payload()
	payload.ResponseCode = resp.Status
	payload.ResponseHeaders = responseHeaders(resp)
	payload.Body = body
}

func responseHeaders(resp Response) []*proto.FetchHeaderEntry {
	var out []*proto.FetchHeaderEntry
	hasType := false
	for _, hd := range resp.Headers {
		switch strings.ToLower(hd.Name) {
		case "content-encoding", "content-length", "location":
			continue
		case "content-type":
			hasType = true
		}
		out = append(out, &proto.FetchHeaderEntry{Name: hd.Name, Value: hd.Value})
	}
	if !hasType && resp.Content.MimeType != "" {
		out = append(out, &proto.FetchHeaderEntry{Name: "Content-Type", Value: resp.Content.MimeType})
	}
	return out
}

func notFound(h *rod.Hijack) {
	payload := h.Response.Payload()
	payload.ResponseCode = http.StatusNotFound
	payload.ResponseHeaders = []*proto.FetchHeaderEntry{{Name: "Content-Type", Value: "application/json"}}
	payload.Body = []byte(`{"error":"no recording for url"}`)
}

func header(headers []Header, name string) string {
	for _, hd := range headers {
		if strings.EqualFold(hd.Name, name) {
			return hd.Value
		}
	}
	return ""
}

func pathKey(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host + u.Path, true
}

// Package replay serves recorded HTTP archives to a Rod page so a captured
// sportsbook session can be driven offline.
package replay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Archive is the subset of an HTTP archive the replayer needs.
type Archive struct {
	Entries []Entry `json:"entries"`
}

// Entry is one recorded request and the response it received.
type Entry struct {
	Request  Request  `json:"request"`
	Response Response `json:"response"`
}

type Request struct {
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Headers []Header `json:"headers,omitempty"`
	Body    string   `json:"body,omitempty"`
}

type Response struct {
	Status  int      `json:"status"`
	Headers []Header `json:"headers,omitempty"`
	Content Content  `json:"content"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Content is a response body. Encoding is "base64" for binary bodies.
type Content struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
	Size     int    `json:"size,omitempty"`
}

// devtoolsArchive is the HAR 1.2 layout exported by browser devtools: entries
// sit under "log" and request bodies under postData.
type devtoolsArchive struct {
	Log struct {
		Entries []struct {
			Request struct {
				Method   string   `json:"method"`
				URL      string   `json:"url"`
				Headers  []Header `json:"headers,omitempty"`
				PostData *struct {
					Text string `json:"text"`
				} `json:"postData,omitempty"`
			} `json:"request"`
			Response Response `json:"response"`
		} `json:"entries"`
	} `json:"log"`
}

// Load reads an archive in either the devtools HAR 1.2 layout or the flat
// layout written by Save.
func Load(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Archive, error) {
	var dt devtoolsArchive
	if err := json.Unmarshal(data, &dt); err == nil && len(dt.Log.Entries) > 0 {
		out := &Archive{Entries: make([]Entry, len(dt.Log.Entries))}
		for i, e := range dt.Log.Entries {
			req := Request{Method: e.Request.Method, URL: e.Request.URL, Headers: e.Request.Headers}
			if e.Request.PostData != nil {
				req.Body = e.Request.PostData.Text
			}
			out.Entries[i] = Entry{Request: req, Response: e.Response}
		}
		return out, nil
	}

	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	return &a, nil
}

// Save writes a in the flat layout.
func Save(path string, a *Archive) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// Keep returns the entries whose request host is one of hosts or a subdomain
// of one. Trackers and ad calls recorded alongside the book are dropped.
func (a *Archive) Keep(hosts ...string) *Archive {
	out := &Archive{}
	for _, e := range a.Entries {
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		for _, h := range hosts {
			h = strings.ToLower(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				out.Entries = append(out.Entries, e)
				break
			}
		}
	}
	return out
}

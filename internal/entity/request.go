package entity

import (
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Upper bound for the url-encoded fetch request body
const maxRequestBodySize = 64 << 10

// Headers the caller may not set on the outbound request.
// Host would redirect the request to another virtual host behind the catalog address,
// the rest are hop-by-hop or framing headers owned by the transport.
var restrictedHeaders = []string{
	"Host",
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

// IsRestrictedHeader reports whether name may not be forwarded upstream
func IsRestrictedHeader(name string) bool {
	return lo.Contains(restrictedHeaders, textproto.CanonicalMIMEHeaderKey(name))
}

// FetchRequest describes the upstream target supplied by the caller
type FetchRequest struct {
	// Host of the feed source, optionally with a port
	Host string

	// Path of the feed on the host
	Path string

	// Method is the HTTP method of the outbound request, GET or POST
	Method string

	// Headers are sent with the outbound request
	Headers http.Header
}

// NewFetchRequestFromRequest reads the url-encoded body of r and creates a new FetchRequest.
// Accepted fields are host, path, method and any number of headers in "Name: value" form.
// nolint: cyclop
func NewFetchRequestFromRequest(r *http.Request) (*FetchRequest, error) {
	if r.Body == nil {
		return nil, fmt.Errorf("%w: request body is required", ErrBadRequest)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))

	if err != nil {
		return nil, fmt.Errorf("%w: could not read request body: %v", ErrBadRequest, err)
	}

	if len(body) > maxRequestBodySize {
		return nil, fmt.Errorf("%w: request body exceeds %d bytes", ErrBadRequest, maxRequestBodySize)
	}

	form, err := url.ParseQuery(string(body))

	if err != nil {
		return nil, fmt.Errorf("%w: could not parse request body: %v", ErrBadRequest, err)
	}

	host := strings.TrimSpace(form.Get("host"))

	if host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrBadRequest)
	}

	path := strings.TrimSpace(form.Get("path"))

	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrBadRequest)
	}

	method := strings.ToUpper(strings.TrimSpace(form.Get("method")))

	if method == "" {
		method = http.MethodGet
	} else if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: method must be %s or %s", ErrBadRequest, http.MethodGet, http.MethodPost)
	}

	headers := http.Header{}

	for _, h := range form["headers"] {
		name, value, found := strings.Cut(h, ":")
		name = strings.TrimSpace(name)

		if !found || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: header %q must be in \"Name: value\" form", ErrBadRequest, h)
		}

		if IsRestrictedHeader(name) {
			return nil, fmt.Errorf("%w: header %q cannot be forwarded", ErrBadRequest, name)
		}

		headers.Add(textproto.CanonicalMIMEHeaderKey(name), strings.TrimSpace(value))
	}

	return &FetchRequest{
		Host:    host,
		Path:    path,
		Method:  method,
		Headers: headers,
	}, nil
}

// OutboundHeaders returns a copy of the headers without the restricted ones
func (r *FetchRequest) OutboundHeaders() http.Header {
	headers := r.Headers.Clone()

	if headers == nil {
		return http.Header{}
	}

	for name := range headers {
		if IsRestrictedHeader(name) {
			headers.Del(name)
		}
	}

	return headers
}

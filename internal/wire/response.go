package wire

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// DefaultMaxHeaderListSize is the aggregate header-bytes budget from
// spec.md §4.1 ("Enforce a configurable max_header_list_size (default
// 64 KiB aggregate)").
const DefaultMaxHeaderListSize = 64 * 1024

// ResponseHead is the result of spec.md §4.1 "Response parsing".
type ResponseHead struct {
	StatusCode int
	Reason     string
	Version    string
	Headers    *domain.HeaderBag
}

// ParseResponseHead reads the status line and header block from r,
// enforcing maxHeaderBytes (<=0 uses DefaultMaxHeaderListSize).
func ParseResponseHead(r *bufio.Reader, maxHeaderBytes int) (*ResponseHead, error) {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderListSize
	}

	statusLine, err := readCRLFLine(r)
	if err != nil {
		return nil, domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.status_line", "%v", err)
	}
	version, status, reason, err := parseStatusLine(statusLine)
	if err != nil {
		return nil, err
	}

	headers := domain.NewHeaderBag()
	budget := maxHeaderBytes
	var pendingName, pendingValue string
	haveField := false

	flush := func() error {
		if !haveField {
			return nil
		}
		if !ValidHeaderName(pendingName) {
			return domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.headers", "invalid header name %q", pendingName)
		}
		headers.Add(pendingName, pendingValue)
		haveField = false
		return nil
	}

	for {
		line, err := readCRLFLine(r)
		if err != nil {
			return nil, domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.headers", "%v", err)
		}
		budget -= len(line)
		if budget < 0 {
			return nil, domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.headers", "header block exceeds %d bytes", maxHeaderBytes)
		}
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			break
		}
		if (line[0] == ' ' || line[0] == '\t') && haveField {
			// obsolete line folding: treat as whitespace replacement
			pendingValue += " " + strings.TrimSpace(line)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.headers", "malformed header line %q", line)
		}
		if !ValidHeaderValue(value) {
			return nil, domain.NewErrorf(domain.KindProtocolError, "wire.parse_response.headers", "invalid header value for %q", name)
		}
		pendingName, pendingValue, haveField = name, value, true
	}

	return &ResponseHead{StatusCode: status, Reason: reason, Version: version, Headers: headers}, nil
}

func parseStatusLine(line string) (version string, status int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", domain.NewErrorf(domain.KindProtocolError, "wire.parse_status_line", "malformed status line %q", line)
	}
	if !strings.HasPrefix(parts[0], "HTTP/1.") {
		return "", 0, "", domain.NewErrorf(domain.KindProtocolError, "wire.parse_status_line", "unsupported version %q", parts[0])
	}
	code, convErr := strconv.Atoi(parts[1])
	if convErr != nil || code < 100 || code > 599 {
		return "", 0, "", domain.NewErrorf(domain.KindProtocolError, "wire.parse_status_line", "invalid status code %q", parts[1])
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return parts[0], code, reason, nil
}

func readCRLFLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// DetermineBodyMode implements the ordered decision from spec.md §4.1
// "Response parsing": HEAD/1xx/204/304 -> empty; chunked if present (even
// if not last in a comma list, conservatively treated as chunked);
// Content-Length if present; else close-delimited.
func DetermineBodyMode(method string, statusCode int, headers *domain.HeaderBag) (domain.BodyLengthMode, int64) {
	if domain.NormalizeMethod(method) == "HEAD" ||
		(statusCode >= 100 && statusCode < 200) ||
		statusCode == 204 || statusCode == 304 {
		return domain.BodyEmpty, 0
	}

	if te := headers.CombinedValue("Transfer-Encoding"); te != "" {
		for _, tok := range strings.Split(te, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
				return domain.BodyChunked, -1
			}
		}
	}

	if cl := headers.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n >= 0 {
			return domain.BodyContentLength, n
		}
	}

	return domain.BodyCloseDelimited, -1
}

package feed

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// HTTPSource fetches a historical bar file from a remote host once at
// construction time and serves it line by line exactly like a local
// file, giving the resty client a role in this engine beyond any REST
// trading API: downloading bar data as an alternative to a local CSV.
type HTTPSource struct {
	lines []string
	pos   int
}

// NewHTTPClient builds a resty client tuned for one-shot bar-file
// fetches: bounded timeout, retry on 5xx, matching the teacher's
// REST-client wrapping idiom.
func NewHTTPClient() *resty.Client {
	return resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(3).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
}

// OpenHTTP fetches url via client and buffers its body as lines.
func OpenHTTP(client *resty.Client, url string) (*HTTPSource, error) {
	resp, err := client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed: fetch %s: status %d", url, resp.StatusCode())
	}

	scanner := bufio.NewScanner(strings.NewReader(resp.String()))
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return &HTTPSource{lines: lines}, nil
}

// ReadLine returns the next buffered line, or "" once exhausted.
func (s *HTTPSource) ReadLine() (string, error) {
	if s.pos >= len(s.lines) {
		return "", nil
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

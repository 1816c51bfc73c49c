package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a *Store backed by an in-memory fake HTTP transport.
// Only Head/Get/Put/Delete object calls are implemented.
func NewMockForTests() *Store {
	return newMockStore(&mockRoundTripper{objects: make(map[string][]byte)})
}

func newMockStore(rt http.RoundTripper) *Store {
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &Store{client: client, bucket: "mock-bucket"}
}

type mockRoundTripper struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		body, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, http.Header{}), nil
		}
		h := http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(body))},
			"Content-Type":   {"text/plain; charset=utf-8"},
			"ETag":           {"\"etag\""},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}
		if req.Method == http.MethodHead {
			return response(http.StatusOK, nil, h), nil
		}
		return response(http.StatusOK, body, h), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.objects[key] = body
		return response(http.StatusOK, nil, http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return response(http.StatusNoContent, nil, http.Header{}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func response(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: h}
}

// decodeChunked decodes a minimal single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	var size int64
	if _, err := fmt.Sscanf(parts[0], "%x", &size); err != nil {
		return nil, false
	}
	if int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

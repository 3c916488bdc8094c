// Package backend is the HTTP client for the OmniShelf REST API.
//
// Every call goes to the network: there is no retry and no response caching.
// Request lifetime is bounded by the caller's context and, when configured,
// by the http.Client timeout.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"omnishelf-dashboard/internal/observability"
)

const maxErrorBody = 2048

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("component", "backend"),
	}
}

// BaseURL is the normalized API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload is a file forwarded to one of the multipart detection endpoints.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends the request and decodes a 2xx JSON body into out. A 404 with
// allowMissing set reports found=false instead of an error.
func (c *Client) do(ctx context.Context, op string, req *http.Request, out any, allowMissing bool) (found bool, err error) {
	ctx, span := observability.StartSpan(ctx, "backend."+op)
	span.SetTag("http.method", req.Method)
	span.SetTag("http.url", req.URL.Path)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.End(c.logger)
	}()

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if id := observability.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	span.SetTag("http.status_code", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound && allowMissing {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		status := http.StatusText(resp.StatusCode)
		if status == "" {
			status = resp.Status
		}
		return false, &StatusError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     status,
			Body:       strings.TrimSpace(string(blob)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return false, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any, allowMissing bool) (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return c.do(ctx, op, req, out, allowMissing)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		blob, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequest(method, c.endpoint(path, nil), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	_, err = c.do(ctx, op, req, out, false)
	return err
}

// upload streams the file as the multipart "file" field without buffering
// the whole image in memory.
func (c *Client) upload(ctx context.Context, op, path string, file Upload, out any) error {
	if file.Body == nil {
		return fmt.Errorf("%s: empty upload", op)
	}
	filename := file.Filename
	if filename == "" {
		filename = "upload"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := createFilePart(mw, filename, file.ContentType)
		if err == nil {
			_, err = io.Copy(part, file.Body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequest(http.MethodPost, c.endpoint(path, nil), pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.do(ctx, op, req, out, false)
	pr.Close()
	return err
}

func createFilePart(mw *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		return mw.CreateFormFile("file", filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}

// decodeList accepts either a bare JSON array or an object that carries the
// array under key. The backend is inconsistent between endpoints.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	inner, ok := envelope[key]
	if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func getList[T any](ctx context.Context, c *Client, op, path string, query url.Values, key string) ([]T, error) {
	var raw json.RawMessage
	if _, err := c.get(ctx, op, path, query, &raw, false); err != nil {
		return nil, err
	}
	items, err := decodeList[T](raw, key)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return items, nil
}

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

type Options struct {
	APIKey   string
	Timeout  time.Duration
	Executor *resilience.Executor
}

// rest is the shared HTTP plumbing of the chunk and feedback clients.
type rest struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int
}

func newRest(baseURL string, opts Options) *rest {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &rest{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
		ensured:    make(map[string]int),
	}
}

func (r *rest) call(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = raw
	}

	do := func(callCtx context.Context) error {
		return r.do(callCtx, method, path, body, out, operation)
	}
	var err error
	if r.executor == nil {
		err = do(ctx)
	} else {
		err = r.executor.Execute(ctx, "qdrant."+operation, do, resilience.ClassifyHTTPError)
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

func (r *rest) do(ctx context.Context, method, path string, body []byte, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// ensureCollection creates the collection and its keyword payload indexes
// once per (collection, vector size). 409 means another writer won the race.
func (r *rest) ensureCollection(ctx context.Context, collection string, vectorSize int, indexedFields []string) error {
	r.ensureMu.Lock()
	if size, ok := r.ensured[collection]; ok && size == vectorSize {
		r.ensureMu.Unlock()
		return nil
	}
	r.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := r.call(ctx, http.MethodPut, "/collections/"+collection, reqBody, nil, "ensure_collection")
	if err != nil && !isStatus(err, http.StatusConflict) {
		return err
	}

	for _, field := range indexedFields {
		index := map[string]any{
			"field_name":   field,
			"field_schema": "keyword",
		}
		err := r.call(ctx, http.MethodPut, "/collections/"+collection+"/index?wait=true", index, nil, "create_payload_index")
		if err != nil && !isStatus(err, http.StatusConflict) {
			return err
		}
	}

	r.ensureMu.Lock()
	r.ensured[collection] = vectorSize
	r.ensureMu.Unlock()
	return nil
}

func (r *rest) forget(collection string) {
	r.ensureMu.Lock()
	delete(r.ensured, collection)
	r.ensureMu.Unlock()
}

func isStatus(err error, code int) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func getOptionalIntPayload(payload map[string]any, key string) *int {
	if _, ok := payload[key].(float64); !ok {
		return nil
	}
	n := getIntPayload(payload, key)
	return &n
}

func getMapPayload(payload map[string]any, key string) map[string]any {
	m, _ := payload[key].(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func getStringSlicePayload(payload map[string]any, key string) []string {
	raw, _ := payload[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

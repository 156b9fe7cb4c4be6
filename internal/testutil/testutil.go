// Package testutil holds helpers shared by HTTP handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
)

// NewRequest creates a new HTTP request with body encoded as JSON. Path
// values are set from pathValues given as name, value pairs.
func NewRequest(method, path string, body interface{}, pathValues ...string) *http.Request {
	var r *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		r.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return r
}

// RecordResponse is a decoded response envelope.
type RecordResponse struct {
	Code    int
	Header  http.Header
	Success bool
	Data    json.RawMessage
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
}

// RecordHTTPResponse decodes the JSON envelope written to w. Empty bodies
// leave the envelope fields zero.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	rec := RecordResponse{Code: result.StatusCode, Header: result.Header}
	if len(bodyBytes) == 0 {
		return rec
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return rec
	}
	rec.Success = env.Success
	rec.Data = env.Data
	if len(env.Error) > 0 {
		json.Unmarshal(env.Error, &rec.Error)
	}
	return rec
}

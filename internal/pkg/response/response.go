package response

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
)

// DecodeJSON decodes JSON from request body into the provided struct
func DecodeJSON(body io.ReadCloser, v interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// Response is the envelope shared with the partner system.
// Code mirrors the HTTP status; 200 means success.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// Page is the common shape of paginated listings.
type Page struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
	Items    interface{} `json:"items"`
}

// JSON sends an envelope with the given status, message and payload
func JSON(w http.ResponseWriter, status int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Response{
		Code: status,
		Msg:  msg,
		Data: data,
	})
}

// OK sends a 200 envelope with the default message
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, "Success", data)
}

// OKWithMsg sends a 200 envelope with a custom message
func OKWithMsg(w http.ResponseWriter, msg string, data interface{}) {
	JSON(w, http.StatusOK, msg, data)
}

// Error sends an error envelope with null data
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, msg, nil)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 Forbidden response
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, message)
}

// NotFound sends a 404 Not Found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// Conflict sends a 409 Conflict response
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message)
}

// TooManyRequests sends a 429 response
func TooManyRequests(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, message)
}

// ValidationError sends a 400 with the field errors flattened into msg
func ValidationError(w http.ResponseWriter, details map[string]string) {
	BadRequest(w, FormatDetails(details))
}

// BadGateway sends a 502 response for upstream failures
func BadGateway(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadGateway, message)
}

// GatewayTimeout sends a 504 response for upstream timeouts
func GatewayTimeout(w http.ResponseWriter, message string) {
	Error(w, http.StatusGatewayTimeout, message)
}

// InternalError sends a 500 Internal Server Error response
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "Internal server error")
}

// FormatDetails renders field errors deterministically as "field: message; ..."
func FormatDetails(details map[string]string) string {
	if len(details) == 0 {
		return "Validation failed"
	}

	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+details[f])
	}
	return strings.Join(parts, "; ")
}

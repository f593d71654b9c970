// Package http contains utility functions for request and response handling.
package http

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

type ErrorCode int

const (
	ErrorCodeInvalidRequestBody ErrorCode = iota + 1
	ErrorCodeUnauthorized
	ErrorCodeNotFound
	ErrorCodeNotAllowed
	ErrorCodeInternal
	ErrorCodeEmptyContent
	ErrorCodeSelfReference
	ErrorCodeQuotaExceeded
	ErrorCodeDuplicate
	ErrorCodeInvalidState
	ErrorCodeNotAuthorized
	ErrorCodeNotAParticipant
	ErrorCodeTimeout
	ErrorCodeTooManyImages
)

// JsonError writes an Error to the ResponseWriter with the provided information.
func JsonError(w http.ResponseWriter, responseCode int, code ErrorCode, msg string) {
	type ErrorResponse struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(responseCode)

	err := json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: msg})
	if err != nil {
		log.Printf("failed to encode response: %s", err.Error())
	}
}

// JsonEncode marshals an interface and writes it to the response.
func JsonEncode(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// JsonEncodeStatus writes v with a non default status code.
func JsonEncodeStatus(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GetInt returns the int value of a query param or the default when it is
// missing or malformed.
func GetInt(values url.Values, key string, defaultValue int) int {
	str := values.Get(key)
	if str == "" {
		return defaultValue
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}

	return val
}

// GetLimit reads a page size. Missing, malformed or non positive values use
// def and anything above max is capped.
func GetLimit(values url.Values, key string, def, max int) int {
	limit := GetInt(values, key, def)
	if limit <= 0 {
		limit = def
	}

	if limit > max {
		return max
	}

	return limit
}

func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	JsonError(w, http.StatusNotFound, ErrorCodeNotFound, "not found")
}

func NotAllowedHandler(w http.ResponseWriter, _ *http.Request) {
	JsonError(w, http.StatusMethodNotAllowed, ErrorCodeNotAllowed, "method not allowed")
}

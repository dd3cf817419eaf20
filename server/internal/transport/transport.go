package transport

import (
	"encoding/json"
	"net/http"
)

// Result is the outcome of a use-case operation: an HTTP-style status code and
// the response body the API layer writes as-is.
type Result struct {
	Status int
	Data   any
}

func OK(data any) Result {
	return Result{Status: http.StatusOK, Data: data}
}

func NotFound(message string) Result {
	return Result{Status: http.StatusNotFound, Data: ErrorBody{Error: message}}
}

func BadRequest(message string) Result {
	return Result{Status: http.StatusBadRequest, Data: MessageBody{Message: message}}
}

func Forbidden(message string) Result {
	return Result{Status: http.StatusForbidden, Data: ErrorBody{Error: message}}
}

func Internal() Result {
	return Result{Status: http.StatusInternalServerError, Data: MessageBody{Message: "Internal Server Error"}}
}

type MessageBody struct {
	Message string `json:"message"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

func ReadJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(v)
}

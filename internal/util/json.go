package util

import (
	"encoding/json"
	"net/http"
)

func ParseJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(dest)
}

func JSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// JSONError writes {"message": msg} with the given status.
func JSONError(w http.ResponseWriter, status int, msg string) {
	JSONResponse(w, status, map[string]any{"message": msg})
}

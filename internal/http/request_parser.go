package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"budget/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var (
	errBodyTooLarge  = errors.New("request body too large")
	errEmptyBody     = fmt.Errorf("%w: request body is required", core.ErrValidation)
	errMalformedBody = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
)

// decodeJSON reads one JSON value from the request body into dst.
// Oversized bodies yield errBodyTooLarge; anything unreadable is a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.Is(err, core.ErrValidation):
			return err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fmt.Errorf("%w: field %s has the wrong type", core.ErrValidation, typeErr.Field)
		}
		return errMalformedBody
	}
	if dec.More() {
		return errMalformedBody
	}
	return nil
}

// pathID parses the named path segment as a positive id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", core.ErrInvalidID, name, r.PathValue(name))
	}
	if err := core.ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

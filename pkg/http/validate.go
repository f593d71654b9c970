package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// DecodeJSON reads the request body into v and validates its struct tags.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return errors.Wrap(err, "invalid request body")
	}

	err = validate.Struct(v)
	if err != nil {
		return errors.Wrap(err, "invalid request body")
	}

	return nil
}

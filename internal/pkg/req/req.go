/*
Package req provides request body binding for the operator API.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
)

// MaxBodySize bounds operator request bodies. It leaves room for a maximal chat payload
// plus JSON escaping.
const MaxBodySize int64 = 256 << 10

// BindJSON decodes the JSON request body into dst. Unknown fields and trailing data are
// rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

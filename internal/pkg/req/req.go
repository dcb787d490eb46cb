/*
Package req provides helper functions for HTTP request parsing.

It encapsulates the logic for parsing multipart form data with per-request size
limits, translating the usual failure modes into application error codes.
*/
package req

import (
	"net/http"
	"strings"

	"github.com/garyxuan/lan-chat/internal/pkg/errs"
)

// MaxFormMemory defines the maximum amount of memory (32 MB) ParseMultipartForm
// will use to store non-file fields. File parts beyond this spill to temporary files.
const MaxFormMemory int64 = 32 << 20 // 32 MB

// SetupMultipart parses multipart form data from the request, capping the entire
// request body at maxBytes via http.MaxBytesReader.
func SetupMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	err := r.ParseMultipartForm(MaxFormMemory)

	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrFileSizeTooLarge)
		}

		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

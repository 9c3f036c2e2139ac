package http

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"acvcharts/internal/core"
)

// ErrInvalidBody marks request bodies that are not a JSON record array.
var ErrInvalidBody = errors.New("invalid request body")

// ParseRecordsBody decodes a JSON array of records from r, reading at most
// limit bytes. Oversized bodies yield an error wrapping *http.MaxBytesError,
// bad records a *core.MalformedRecordError.
func ParseRecordsBody(w http.ResponseWriter, r *http.Request, limit int64) ([]core.RawRecord, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
			return nil, fmt.Errorf("%w: content type %q is not JSON", ErrInvalidBody, ct)
		}
	}

	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	recs, err := core.DecodeRecords(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, core.ErrMalformedRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return recs, nil
}

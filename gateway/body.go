package gateway

import (
	"encoding/json"
	"errors"
	"io"

	pool "github.com/libp2p/go-buffer-pool"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errBodyInvalid  = errors.New("request body is not valid JSON")
)

// decodeBody reads at most limit bytes from body into a pooled buffer and
// unmarshals them into v. An empty body leaves v untouched.
func decodeBody(body io.Reader, limit int, v any) error {
	buf := pool.Get(limit)
	defer pool.Put(buf)

	n, err := io.ReadFull(body, buf)
	switch {
	case err == nil:
		var probe [1]byte
		if m, _ := io.ReadFull(body, probe[:]); m > 0 {
			return errBodyTooLarge
		}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	default:
		return err
	}

	if n == 0 {
		return nil
	}

	// json.RawMessage fields copy their bytes, so nothing in v aliases buf.
	if err := json.Unmarshal(buf[:n], v); err != nil {
		return errBodyInvalid
	}
	return nil
}

package partner

import (
	"errors"
	"fmt"
)

var (
	ErrConfig  = errors.New("partner config error")
	ErrTimeout = errors.New("partner request timeout")
	ErrNetwork = errors.New("partner network error")
	ErrRequest = errors.New("partner request error")
)

// RemoteError is a non-2xx HTTP answer, or a 2xx envelope whose code is not 200.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("partner http error: status=%d body=%s", e.Status, e.Body)
}

// IsRemote reports whether err carries a *RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

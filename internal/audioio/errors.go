package audioio

import "errors"

// ErrNoStream is returned when Read/Write is called with nothing open,
// matching spec error code -2 ("no stream open").
var ErrNoStream = errors.New("audioio: no stream open")

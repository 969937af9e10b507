package fluid

import "errors"

// ErrConfiguration reports a start-up configuration the simulator cannot run with.
var ErrConfiguration = errors.New("fluid: configuration error")

package domain

import "errors"

// ErrDataIntegrity marks external data that no longer matches the assumptions of
// the cost model. Computations hitting it must stop rather than work around it.
var ErrDataIntegrity = errors.New("data integrity violation")

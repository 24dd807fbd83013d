package factors

import "errors"

// ErrFactorSourceDiscrepancy is returned when a referenced factor source is not known.
var ErrFactorSourceDiscrepancy = errors.New("factor source discrepancy")

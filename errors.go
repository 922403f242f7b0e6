package tracker

import "errors"

// ErrUndefinedYield reports that the annualized yield has no real value: a
// non-positive growth factor cannot be raised to a fractional exponent. The
// portfolio carrying it is otherwise complete, with the yield reported as 0.
var ErrUndefinedYield = errors.New("annualized yield is undefined")

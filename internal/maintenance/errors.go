package maintenance

import "errors"

var (
	ErrInvalidFrequency = errors.New("invalid maintenance frequency")
	ErrInvalidCadence   = errors.New("invalid maintenance cadence")
	ErrInvalidPriority  = errors.New("invalid maintenance priority")
	ErrInvalidRules     = errors.New("invalid maintenance rules")
)

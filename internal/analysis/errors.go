package analysis

import "errors"

var (
	ErrMissingJobID = errors.New("missing job id")
	ErrPollTimeout  = errors.New("analysis job did not finish before poll timeout")
)

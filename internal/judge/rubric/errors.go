package rubric

import "errors"

var (
	ErrJudgeUnavailable = errors.New("quality judge unavailable")
	ErrJudgeTimeout     = errors.New("quality judge timeout")
	ErrInvalidVerdict   = errors.New("quality judge returned invalid verdict")
)

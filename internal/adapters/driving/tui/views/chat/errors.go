package chat

import "errors"

// ErrNoQAService indicates that no QA service was provided.
var ErrNoQAService = errors.New("qa service is required")

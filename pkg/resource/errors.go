package resource

import "errors"

// ErrNotFound is matched by cloud client errors for resources that do not exist.
var ErrNotFound = errors.New("resource not found")

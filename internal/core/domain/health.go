package domain

// ComponentCheck is the outcome of probing one external collaborator.
type ComponentCheck struct {
	Name   string
	Detail string
	Err    error
}

// OK reports whether the probe succeeded.
func (c ComponentCheck) OK() bool {
	return c.Err == nil
}

package http

// outcome is what the connection loop does after a request was handled.
type outcome uint8

const (
	eProceed outcome = iota + 1
	eClose
	eHijacked
)

package diag

// Diagnostic is one reportable condition tied to a named constant.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Constant string // name of the offending constant, if known
	Message  string
}

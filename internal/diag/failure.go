package diag

import "fmt"

// Failure is a fatal conversion failure.  A constant is either fully and
// correctly materialized or its conversion aborts with one of these; there
// are no partial results.
type Failure struct {
	Code    Code
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Failf aborts the current conversion by panicking with a *Failure.  The
// panic is recovered at the conversion entry point and surfaced as an error.
func Failf(code Code, format string, args ...any) {
	panic(&Failure{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Recover converts a *Failure panic into an error, re-panicking on anything
// else.  Use in a defer at a conversion entry point:
//
//	defer diag.Recover(&err)
func Recover(err *error) {
	switch r := recover().(type) {
	case nil:
	case *Failure:
		*err = r
	default:
		panic(r)
	}
}

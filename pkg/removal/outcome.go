package removal

import "fmt"

// Kind classifies the response to one removal request
type Kind int

const (
	KindSuccess Kind = iota
	KindUndefinedID
	KindSkipped
	KindRateLimited
	KindFail
	KindFatal
	KindTransportError
)

var kindNames = map[Kind]string{
	KindSuccess:        "success",
	KindUndefinedID:    "undefined_id",
	KindSkipped:        "skipped",
	KindRateLimited:    "rate_limited",
	KindFail:           "fail",
	KindFatal:          "fatal",
	KindTransportError: "transport_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the classified result of one removal attempt.
//
// Code carries the storefront's success code for skipped and rate_limited,
// Status the HTTP status for fail, Body a preview of the response for fatal
// and Err the cause of a transport error.
type Outcome struct {
	Kind   Kind
	Code   int
	Status int
	Body   string
	Err    error
}

// Success reports a removed package
func Success() Outcome { return Outcome{Kind: KindSuccess, Code: 1} }

// UndefinedID reports that no package exists behind the ID
func UndefinedID() Outcome { return Outcome{Kind: KindUndefinedID, Code: 8} }

// Skipped reports an unknown success code accepted as final
func Skipped(code int) Outcome { return Outcome{Kind: KindSkipped, Code: code} }

// RateLimited reports an unknown success code treated as throttling
func RateLimited(code int) Outcome { return Outcome{Kind: KindRateLimited, Code: code} }

// Fail reports a non-2xx response
func Fail(status int) Outcome { return Outcome{Kind: KindFail, Status: status} }

// Fatal reports a response that is not structured data
func Fatal(body string) Outcome { return Outcome{Kind: KindFatal, Body: body} }

// TransportError reports a request that could not complete
func TransportError(err error) Outcome { return Outcome{Kind: KindTransportError, Err: err} }

func (o Outcome) String() string {
	switch o.Kind {
	case KindSkipped, KindRateLimited:
		return fmt.Sprintf("%s(%d)", o.Kind, o.Code)
	case KindFail:
		return fmt.Sprintf("%s(http %d)", o.Kind, o.Status)
	case KindTransportError:
		if o.Err != nil {
			return fmt.Sprintf("%s(%v)", o.Kind, o.Err)
		}
	}
	return o.Kind.String()
}

package common

// Request is the envelope a client posts for every remote call. Only the
// fields used by Operation are filled in.
type Request struct {
	Operation  Operation `json:"operation"`
	ID         int64     `json:"id,omitempty"`
	Record     *Record   `json:"record,omitempty"`
	Salary     float64   `json:"salary,omitempty"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
}

// Response is the reply to a Request. Error is set when the call failed on
// the server; Found carries the boolean outcome of delete/update/read.
type Response struct {
	Record  *Record      `json:"record,omitempty"`
	Records []Record     `json:"records,omitempty"`
	Found   bool         `json:"found"`
	Error   *RemoteError `json:"error,omitempty"`
}

// RemoteError is the wire form of a failed call.
type RemoteError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindBadRequest ErrorKind = "bad-request"
	KindInternal   ErrorKind = "internal"
)

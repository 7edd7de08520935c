package gate

import (
	"net/http"
)

// AttachmentKey identifies a typed value attached to an Exchange
type AttachmentKey[T any] struct {
	name string
}

// NewAttachmentKey creates a key. Keys compare by identity.
func NewAttachmentKey[T any](name string) *AttachmentKey[T] {
	return &AttachmentKey[T]{name: name}
}

// String returns the key name
func (k *AttachmentKey[T]) String() string {
	return k.name
}

// Exchange holds the state of one request while it passes the gate.
// It lives exactly as long as the request and is not safe for concurrent use.
type Exchange struct {
	w           http.ResponseWriter
	r           *http.Request
	status      int
	attachments map[any]any
}

// NewExchange creates an exchange for a request
func NewExchange(w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{w: w, r: r}
}

// Request returns the current request, including any context set by filters
func (e *Exchange) Request() *http.Request {
	return e.r
}

// Response returns the response writer
func (e *Exchange) Response() http.ResponseWriter {
	return e.w
}

// StatusCode returns the recorded status, or 0 if none was set
func (e *Exchange) StatusCode() int {
	return e.status
}

// SetStatusCode records the gate's verdict
func (e *Exchange) SetStatusCode(status int) {
	e.status = status
}

// PutAttachment stores a value on the exchange
func PutAttachment[T any](e *Exchange, key *AttachmentKey[T], value T) {
	if e.attachments == nil {
		e.attachments = make(map[any]any)
	}
	e.attachments[key] = value
}

// GetAttachment returns the value stored under key
func GetAttachment[T any](e *Exchange, key *AttachmentKey[T]) (T, bool) {
	v, ok := e.attachments[key].(T)
	return v, ok
}

package formadmin

import (
	"context"
	"net/http"
	"net/url"
)

// Request carries everything an action needs. Nothing is read from ambient state.
type Request struct {
	Method string
	// ID is the record identifier taken from the route, empty when absent.
	ID     string
	Query  url.Values
	Form   url.Values
	Files  map[string]UploadedFile
	UserID string
	// DataRequest is set when the caller expects a structured response
	// instead of a rendered page.
	DataRequest bool
}

// IsSubmission reports whether the request submits a form.
func (r *Request) IsSubmission() bool {
	return r.Method == http.MethodPost
}

// HasForm reports whether the submission carries key, even with an empty value.
func (r *Request) HasForm(key string) bool {
	_, ok := r.Form[key]
	return ok
}

type ResponseKind int

const (
	ResponseView ResponseKind = iota
	ResponseJSON
	ResponseRedirect
)

// Response is the outcome of an action, independent of the transport.
type Response struct {
	Kind     ResponseKind
	Status   int
	Location string
	Payload  any
	View     *View
}

// View is the data handed to the presentation layer.
type View struct {
	Name        string
	Model       string
	ModelName   string
	PageTitle   string
	PageHeader  string
	RoutePrefix string
	ListFields  *FieldSet
	EditFields  *FieldSet
	Record      *Entity
	Errors      []string
}

func JSONResponse(payload any) *Response {
	return &Response{Kind: ResponseJSON, Status: http.StatusOK, Payload: payload}
}

func RedirectResponse(location string) *Response {
	return &Response{Kind: ResponseRedirect, Status: http.StatusFound, Location: location}
}

func ViewResponse(status int, view *View) *Response {
	return &Response{Kind: ResponseView, Status: status, View: view}
}

// Controller serves the list, edit, new and delete actions of one model.
type Controller interface {
	Model() *Model
	ListPath() string
	List(ctx context.Context, req *Request) (*Response, error)
	Edit(ctx context.Context, req *Request) (*Response, error)
	New(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
}

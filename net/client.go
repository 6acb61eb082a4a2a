package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	c "Userdb/common"
	"Userdb/service"
)

var (
	// ErrTransport wraps every failure to reach the service or read its
	// reply. The session that produced it should be considered lost.
	ErrTransport = errors.New("transport failure")
	// ErrNotBound means the server answered but has no service under the
	// requested name. It is also an ErrTransport.
	ErrNotBound = fmt.Errorf("%w: service not bound", ErrTransport)
	// ErrRemote is a server-side failure that is neither a validation error
	// nor a transport problem.
	ErrRemote = errors.New("remote error")
)

var _ service.API = (*Client)(nil)

// Client is a handle to a remote service. It implements service.API.
type Client struct {
	baseURL    string
	name       string
	httpClient *http.Client

	// OnTransportError, if set, is called with every ErrTransport the
	// client returns.
	OnTransportError func(error)
}

// NewClient returns a handle for service name at addr (host:port). A nil
// httpClient means http.DefaultClient.
func NewClient(addr, name string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    "http://" + addr,
		name:       name,
		httpClient: httpClient,
	}
}

func (cl *Client) transportError(op string, err error) error {
	if !errors.Is(err, ErrTransport) {
		err = fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	if cl.OnTransportError != nil {
		cl.OnTransportError(err)
	}
	return err
}

// Lookup asks the registry whether the service is bound.
func (cl *Client) Lookup(ctx context.Context) error {
	u := cl.baseURL + registryPrefix + url.PathEscape(cl.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: lookup: %w", ErrTransport, err)
	}
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: lookup: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotBound, cl.name)
	default:
		return fmt.Errorf("%w: lookup: unexpected status %s", ErrTransport, resp.Status)
	}
}

func (cl *Client) call(ctx context.Context, in c.Request) (c.Response, error) {
	op := in.Operation.String()
	payload, err := json.Marshal(in)
	if err != nil {
		return c.Response{}, fmt.Errorf("%s: encode request: %w", op, err)
	}
	u := cl.baseURL + rpcPrefix + url.PathEscape(cl.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return c.Response{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return c.Response{}, cl.transportError(op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return c.Response{}, cl.transportError(op, fmt.Errorf("%w: %s", ErrNotBound, cl.name))
	default:
		io.Copy(io.Discard, resp.Body)
		return c.Response{}, cl.transportError(op, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var out c.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.Response{}, cl.transportError(op, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != nil {
		return c.Response{}, fromRemoteError(op, out.Error)
	}
	return out, nil
}

func fromRemoteError(op string, re *c.RemoteError) error {
	if re.Kind == c.KindValidation {
		return c.NewValidationError(re.Message)
	}
	return fmt.Errorf("%w: %s: %s: %s", ErrRemote, op, re.Kind, re.Message)
}

func (cl *Client) Create(ctx context.Context, candidate *c.Record) (c.Record, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.Create, Record: candidate})
	if err != nil {
		return c.Record{}, err
	}
	if resp.Record == nil {
		return c.Record{}, fmt.Errorf("%w: create: empty reply", ErrRemote)
	}
	return *resp.Record, nil
}

func (cl *Client) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.Delete, ID: id})
	return resp.Found, err
}

func (cl *Client) Read(ctx context.Context, id int64) (c.Record, bool, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.Read, ID: id})
	if err != nil || !resp.Found || resp.Record == nil {
		return c.Record{}, false, err
	}
	return *resp.Record, true, nil
}

func (cl *Client) List(ctx context.Context) ([]c.Record, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.List})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (cl *Client) UpdateSalary(ctx context.Context, id int64, salary float64) (bool, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.UpdateSalary, ID: id, Salary: salary})
	return resp.Found, err
}

func (cl *Client) UpdateDepartmentAndPosition(ctx context.Context, id int64, department, position string) (bool, error) {
	resp, err := cl.call(ctx, c.Request{Operation: c.UpdateDepartment, ID: id, Department: department, Position: position})
	return resp.Found, err
}

func (cl *Client) Shutdown(ctx context.Context) error {
	_, err := cl.call(ctx, c.Request{Operation: c.Shutdown})
	return err
}

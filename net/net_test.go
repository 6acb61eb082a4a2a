package net

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	c "Userdb/common"
	"Userdb/service"
	"Userdb/storage"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testName = "UserService"

func adam() *c.Record {
	return &c.Record{
		FirstName:  "Adam",
		LastName:   "Nowak",
		BirthDate:  c.NewDate(1990, time.January, 1),
		Salary:     15000,
		Gender:     c.Male,
		Department: "IT",
		Position:   "Developer",
	}
}

func startServer(t *testing.T, api service.API) (*Server, *Client) {
	t.Helper()
	srv := NewServer("127.0.0.1:0", 0)
	srv.Bind(testName, api)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, NewClient(strings.TrimPrefix(ts.URL, "http://"), testName, ts.Client())
}

func newService(opts ...service.Option) *service.Service {
	logger, _ := test.NewNullLogger()
	return service.NewService(storage.NewStorage(), append([]service.Option{service.WithLogger(logger)}, opts...)...)
}

func TestClientServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, cl := startServer(t, newService())

	require.NoError(t, cl.Lookup(ctx))

	created, err := cl.Create(ctx, adam())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, found, err := cl.Read(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	want := *adam()
	want.ID = 1
	assert.Equal(t, want, got)

	ok, err := cl.UpdateSalary(ctx, 1, 17000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cl.UpdateDepartmentAndPosition(ctx, 1, "Finance", "Lead")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := cl.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 17000.0, list[0].Salary)
	assert.Equal(t, "Finance", list[0].Department)
	assert.Equal(t, "Lead", list[0].Position)

	ok, err = cl.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err = cl.Read(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = cl.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err = cl.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestValidationErrorCrossesTheWire(t *testing.T) {
	ctx := context.Background()
	_, cl := startServer(t, newService())

	bad := adam()
	bad.Salary = -1
	_, err := cl.Create(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, c.ErrValidation))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.EqualError(t, err, "Salary must be non-negative.")

	_, err = cl.Create(ctx, nil)
	assert.EqualError(t, err, "User object is null.")

	_, err = cl.UpdateSalary(ctx, 1, -3)
	assert.True(t, errors.Is(err, c.ErrValidation))

	_, err = cl.UpdateDepartmentAndPosition(ctx, 1, "", "Lead")
	assert.EqualError(t, err, "Department cannot be empty.")
}

func TestNotFoundIsFalse(t *testing.T) {
	ctx := context.Background()
	_, cl := startServer(t, newService())

	ok, err := cl.UpdateSalary(ctx, 5, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cl.UpdateDepartmentAndPosition(ctx, 5, "HR", "Lead")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnboundService(t *testing.T) {
	ctx := context.Background()
	srv, cl := startServer(t, newService())

	require.True(t, srv.Unbind(testName))
	assert.False(t, srv.Unbind(testName))

	err := cl.Lookup(ctx)
	assert.True(t, errors.Is(err, ErrNotBound))
	assert.True(t, errors.Is(err, ErrTransport))

	var reported error
	cl.OnTransportError = func(err error) { reported = err }
	_, err = cl.List(ctx)
	assert.True(t, errors.Is(err, ErrNotBound))
	assert.Equal(t, err, reported)
}

func TestTransportErrorWhenServerGone(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 0)
	srv.Bind(testName, newService())
	ts := httptest.NewServer(srv.Handler())
	cl := NewClient(strings.TrimPrefix(ts.URL, "http://"), testName, nil)
	ts.Close()

	var calls atomic.Int32
	cl.OnTransportError = func(error) { calls.Add(1) }

	_, err := cl.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, c.ErrValidation))
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, errors.Is(cl.Lookup(context.Background()), ErrTransport))
}

type panicky struct {
	service.API
}

func (panicky) List(context.Context) ([]c.Record, error) {
	panic("boom")
}

func TestPanicIsConfinedToRequest(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	_, cl := startServer(t, panicky{API: svc})

	_, err := cl.List(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemote))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "boom")

	created, err := cl.Create(ctx, adam())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestDispatchRejectsUnknownOperation(t *testing.T) {
	resp := Dispatch(context.Background(), newService(), c.Request{Operation: c.Operation(99)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, c.KindBadRequest, resp.Error.Kind)
}

func TestBadRequestBody(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 0)
	srv.Bind(testName, newService())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/rpc/"+testName, "application/json", strings.NewReader(`{"operation":"drop"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/rpc/" + testName)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestServeAndShutdownAcknowledged(t *testing.T) {
	stopped := make(chan struct{})
	srv := NewServer("127.0.0.1:0", 4)
	svc := newService(service.WithShutdownHook(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Unbind(testName)
		_ = srv.Shutdown(ctx)
		close(stopped)
	}))
	srv.Bind(testName, svc)
	require.NoError(t, srv.Listen())

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	cl := NewClient(srv.Addr(), testName, nil)
	require.Eventually(t, func() bool { return cl.Lookup(context.Background()) == nil }, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, cl.Shutdown(context.Background()))

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, <-served)

	assert.True(t, errors.Is(cl.Lookup(context.Background()), ErrTransport))
}

func TestListenPortInUse(t *testing.T) {
	first := NewServer("127.0.0.1:0", 0)
	require.NoError(t, first.Listen())
	defer first.listener.Close()

	second := NewServer(first.Addr(), 0)
	assert.Error(t, second.Listen())
}

package dispatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha/pkg/intent"
)

func fullTable(h Handler) map[string]Handler {
	table := make(map[string]Handler)
	for _, name := range intent.Default().Names() {
		table[name] = h
	}
	return table
}

func validated(t *testing.T, action string, params map[string]string) *intent.Intent {
	t.Helper()
	in, err := intent.Validate(intent.Raw{Action: action, Parameters: params}, intent.Default())
	require.NoError(t, err)
	return in
}

func TestNewRejectsDriftedTable(t *testing.T) {
	noop := HandlerFunc(func(*intent.Intent) (string, error) { return "", nil })

	table := fullTable(noop)
	delete(table, "set_volume")
	_, err := New(intent.Default(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_volume")

	table = fullTable(noop)
	table["teleport"] = noop
	_, err = New(intent.Default(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestDispatchSuccess(t *testing.T) {
	var got *intent.Intent
	table := fullTable(HandlerFunc(func(in *intent.Intent) (string, error) {
		got = in
		return "Opening YouTube", nil
	}))

	d, err := New(intent.Default(), table)
	require.NoError(t, err)

	res := d.Dispatch(validated(t, "open_website", map[string]string{"site": "youtube"}))
	assert.True(t, res.OK)
	assert.Equal(t, "Opening YouTube", res.Message)
	assert.Empty(t, res.ErrorKind)
	assert.Equal(t, "youtube", got.String("site"))
}

func TestDispatchHandlerFailure(t *testing.T) {
	table := fullTable(HandlerFunc(func(*intent.Intent) (string, error) {
		return "", &Failure{
			Kind:   "app_not_found",
			Spoken: "Sorry, I couldn't find that application.",
			Err:    fmt.Errorf("exec: not found"),
		}
	}))

	d, err := New(intent.Default(), table)
	require.NoError(t, err)

	res := d.Dispatch(validated(t, "open_application", map[string]string{"app_name": "nope"}))
	assert.False(t, res.OK)
	assert.Equal(t, "app_not_found", res.ErrorKind)
	assert.Equal(t, "Sorry, I couldn't find that application.", res.Message)
}

func TestDispatchPlainErrorMapsToHandlerKind(t *testing.T) {
	table := fullTable(HandlerFunc(func(*intent.Intent) (string, error) {
		return "", fmt.Errorf("boom")
	}))

	d, err := New(intent.Default(), table)
	require.NoError(t, err)

	res := d.Dispatch(validated(t, "web_search", map[string]string{"query": "pizza"}))
	assert.False(t, res.OK)
	assert.Equal(t, KindHandler, res.ErrorKind)
	assert.NotEmpty(t, res.Message)
}

func TestDispatchRecoversPanics(t *testing.T) {
	table := fullTable(HandlerFunc(func(*intent.Intent) (string, error) {
		panic("handler bug")
	}))

	d, err := New(intent.Default(), table)
	require.NoError(t, err)

	res := d.Dispatch(validated(t, "youtube_search", map[string]string{"query": "q"}))
	assert.False(t, res.OK)
	assert.Equal(t, KindInternal, res.ErrorKind)
}

func TestDispatchTableDesyncIsInternal(t *testing.T) {
	// Build a dispatcher against a narrower schema, then feed it an intent
	// validated elsewhere. The lookup miss must surface as an internal
	// defect, never a silent no-op.
	narrow, err := intent.NewSchema([]intent.ActionSpec{
		{Name: "stop", Description: "stop"},
	})
	require.NoError(t, err)

	d, err := New(narrow, map[string]Handler{
		"stop": HandlerFunc(func(*intent.Intent) (string, error) { return "ok", nil }),
	})
	require.NoError(t, err)

	res := d.Dispatch(validated(t, "open_website", map[string]string{"site": "youtube"}))
	assert.False(t, res.OK)
	assert.Equal(t, KindInternal, res.ErrorKind)
}

func TestDispatchDoesNotRetry(t *testing.T) {
	calls := 0
	table := fullTable(HandlerFunc(func(*intent.Intent) (string, error) {
		calls++
		return "", fmt.Errorf("transient")
	}))

	d, err := New(intent.Default(), table)
	require.NoError(t, err)

	d.Dispatch(validated(t, "open_application", map[string]string{"app_name": "x"}))
	assert.Equal(t, 1, calls)
}

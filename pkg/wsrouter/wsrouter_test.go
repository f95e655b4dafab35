package wsrouter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	r := New()

	var got json.RawMessage
	r.Handle("join", func(_ context.Context, data json.RawMessage) {
		got = data
	})

	err := r.Dispatch(context.Background(), []byte(`{"type":"join","roomId":"r1"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join","roomId":"r1"}`, string(got))
}

func TestDispatchUnknownType(t *testing.T) {
	r := New()
	r.Handle("join", func(context.Context, json.RawMessage) {
		t.Fatal("handler must not be called")
	})

	err := r.Dispatch(context.Background(), []byte(`{"type":"chat"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDispatchInvalidJSON(t *testing.T) {
	r := New()

	err := r.Dispatch(context.Background(), []byte(`{not json`))
	assert.Error(t, err)
}

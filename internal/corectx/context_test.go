package corectx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	records []*Error
}

func (r *recordingSink) Record(_ context.Context, err *Error) error {
	r.records = append(r.records, err)
	return nil
}

func TestSetErrorAndLastError(t *testing.T) {
	cc := NewContext()
	ctx := WithErrorSlot(context.Background())

	require.Nil(t, cc.LastError(ctx))

	e := New("session", CodeInvalidState, "bad transition")
	cc.SetError(ctx, e)

	got := cc.LastError(ctx)
	require.NotNil(t, got)
	assert.Equal(t, e, got)
}

func TestLastErrorWithoutSlotReturnsNil(t *testing.T) {
	cc := NewContext()
	ctx := context.Background() // no WithErrorSlot

	cc.SetError(ctx, New("session", CodeInternal, "oops"))
	assert.Nil(t, cc.LastError(ctx))
}

func TestSinkForwarding(t *testing.T) {
	cc := NewContext()
	sink := &recordingSink{}
	cc.SetSink(sink)

	ctx := WithErrorSlot(context.Background())
	e1 := New("ffi", CodeNotFound, "missing function")
	e2 := New("wire", CodeChecksumMismatch, "bad checksum")

	cc.SetError(ctx, e1)
	cc.SetError(ctx, e2)

	require.Len(t, sink.records, 2)
	assert.Equal(t, e1, sink.records[0])
	assert.Equal(t, e2, sink.records[1])
	// last error slot reflects the most recent only
	assert.Equal(t, e2, cc.LastError(ctx))
}

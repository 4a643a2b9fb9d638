package storage

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter notes the order of writes and closes.
type recordingWriter struct {
	events *[]string
	buf    strings.Builder
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	*w.events = append(*w.events, "write")
	return w.buf.Write(p)
}

func (w *recordingWriter) Close() error {
	*w.events = append(*w.events, "close")
	return nil
}

var errSourceBroken = errors.New("source broken")

// brokenReader yields some bytes and then fails.
type brokenReader struct{ sent bool }

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errSourceBroken
	}
	r.sent = true
	return copy(p, "id,name\n1,"), nil
}

func TestWriteObject_AbortsBeforeCloseOnCopyFailure(t *testing.T) {
	var events []string
	w := &recordingWriter{events: &events}

	err := writeObject(w, &brokenReader{}, func() { events = append(events, "abort") })

	require.Error(t, err)
	assert.ErrorIs(t, err, errSourceBroken)
	assert.Equal(t, []string{"write", "abort", "close"}, events)
}

func TestWriteObject_CommitsOnSuccess(t *testing.T) {
	var events []string
	w := &recordingWriter{events: &events}
	aborted := false

	err := writeObject(w, strings.NewReader("id,name\n1,a\n"), func() { aborted = true })

	require.NoError(t, err)
	assert.False(t, aborted)
	assert.Equal(t, "id,name\n1,a\n", w.buf.String())
	assert.Equal(t, "close", events[len(events)-1])
}

type failingCloser struct{ io.Writer }

func (failingCloser) Close() error { return errors.New("commit refused") }

func TestWriteObject_CloseError(t *testing.T) {
	err := writeObject(failingCloser{io.Discard}, strings.NewReader("x\n"), func() {
		t.Fatal("abort must not run when the copy succeeds")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize: commit refused")
}

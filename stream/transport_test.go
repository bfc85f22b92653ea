package stream

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSSETransportFraming(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	tr := SSETransport{}

	require.Equal(t, "text/event-stream", tr.ContentType())
	require.False(t, tr.RetainOverlap())

	require.NoError(t, tr.WriteEvent(w, Event{Text: "hello "}))
	require.NoError(t, tr.Close(w))

	require.Equal(t,
		"data: {\"choices\":[{\"delta\":{\"content\":\"hello \"}}]}\n\n"+
			"data: [DONE]\n\n",
		buf.String())
}

func TestSSETransportError(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	tr := SSETransport{}

	require.NoError(t, tr.WriteError(w, errors.New("backend unreachable")))
	require.Equal(t,
		"data: {\"error\":\"Generation failed\",\"detail\":\"backend unreachable\"}\n\n",
		buf.String())
}

func TestEnvelopeTransportFraming(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	tr := EnvelopeTransport{}

	require.Equal(t, "application/json", tr.ContentType())
	require.True(t, tr.RetainOverlap())

	require.NoError(t, tr.WriteEvent(w, Event{Text: "hello world ", LastWord: "world"}))
	require.NoError(t, tr.WriteEvent(w, Event{Text: "world again", Final: true, LastWord: "again"}))
	require.NoError(t, tr.Close(w))

	require.Equal(t,
		"{\"text\":\"hello world \",\"lastWord\":\"world\"}\n"+
			"{\"text\":\"world again\",\"lastWord\":\"again\",\"isLast\":true}\n",
		buf.String())
}

func TestEnvelopeTransportError(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	tr := EnvelopeTransport{}

	require.NoError(t, tr.WriteError(w, errors.New("model crashed")))
	require.Equal(t,
		"{\"error\":\"Generation failed\",\"detail\":\"model crashed\"}\n",
		buf.String())
}

func TestTransportFor(t *testing.T) {
	require.IsType(t, EnvelopeTransport{}, TransportFor("json"))
	require.IsType(t, EnvelopeTransport{}, TransportFor("envelope"))
	require.IsType(t, SSETransport{}, TransportFor("sse"))
	require.IsType(t, SSETransport{}, TransportFor(""))
}

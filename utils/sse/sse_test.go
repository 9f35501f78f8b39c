package sse

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
)

func TestSend(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := Send(w, Event{Event: "activity", ID: "7", Retry: 3000, Data: map[string]int{"inFlight": 2}})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	want := "id: 7\nretry: 3000\nevent: activity\ndata: {\"inFlight\":2}\n\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestSendMultiline(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := Send(w, Event{Data: "a\nb"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if buf.String() != "data: a\ndata: b\n\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSendErrorAndKeepAlive(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := SendError(w, errors.New("boom")); err != nil {
		t.Fatalf("SendError returned error: %v", err)
	}
	if err := SendKeepAlive(w); err != nil {
		t.Fatalf("SendKeepAlive returned error: %v", err)
	}
	want := "event: error\ndata: {\"message\":\"boom\",\"type\":\"error\"}\n\n: ping\n\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

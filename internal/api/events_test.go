package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seantiz/skinnypoem/internal/engine"
	"github.com/seantiz/skinnypoem/internal/model"
)

type sseEvent struct {
	name string
	data string
}

// readEvents parses SSE frames from the body until it ends.
func readEvents(scanner *bufio.Scanner, n int) []sseEvent {
	var (
		events []sseEvent
		cur    sseEvent
		data   []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case line == "" && (cur.name != "" || len(data) > 0):
			cur.data = strings.Join(data, "\n")
			events = append(events, cur)
			cur, data = sseEvent{}, nil
			if len(events) == n {
				return events
			}
		}
	}
	return events
}

func TestStreamEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	// Create the day's state up front so the stream carries only the vote.
	do(t, srv, "GET", "/v1/poem/state", "", nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/v1/poem/events", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	// The current state arrives first.
	first := readEvents(scanner, 1)
	if len(first) != 1 || first[0].name != engine.EventState {
		t.Fatalf("first events = %+v", first)
	}

	vote := httptest.NewRequest("POST", "/v1/poem/vote", strings.NewReader(`{"type":"keyline","optionId":"keyline_4"}`))
	vote.Header.Set("X-User-Id", "u9")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, vote)
	if rec.Code != http.StatusOK {
		t.Fatalf("vote status = %d: %s", rec.Code, rec.Body.String())
	}

	// Closing the engine ends the stream with a done event.
	srv.engine.Close()

	rest := readEvents(scanner, 2)
	if len(rest) != 2 {
		t.Fatalf("got %d events after vote, want 2: %+v", len(rest), rest)
	}

	var ev engine.Event
	if err := json.Unmarshal([]byte(rest[0].data), &ev); err != nil {
		t.Fatalf("decode state event: %v", err)
	}
	if rest[0].name != engine.EventState || ev.State == nil || ev.State.KeyLineOptions[4].Votes != 1 {
		t.Errorf("state event = %+v", ev)
	}
	if ev.State.Phase != model.PhaseKeyLine {
		t.Errorf("phase = %q", ev.State.Phase)
	}
	if rest[1].name != "done" {
		t.Errorf("last event = %+v, want done", rest[1])
	}
}

func TestWriteSSEDataMultiLine(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := writeSSEData(rec, "line one\nline two"); err != nil {
		t.Fatalf("writeSSEData: %v", err)
	}
	want := "data: line one\ndata: line two\n\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

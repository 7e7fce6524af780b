// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/platypus/internal/ui"
)

type fakeController struct {
	saves atomic.Int32
	taps  atomic.Int32
	st    Status
}

func (f *fakeController) Status() Status { return f.st }
func (f *fakeController) RequestSave()   { f.saves.Add(1) }
func (f *fakeController) Tap()           { f.taps.Add(1) }

func newTestServer(t *testing.T) (*fakeController, *httptest.Server) {
	t.Helper()
	ctl := &fakeController{st: Status{
		Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DisplayState: ui.Clock,
		BufferBytes:  4096,
		ActiveSlot:   1,
	}}
	srv := httptest.NewServer(NewStatusServer(ctl, 10*time.Millisecond).Handler())
	t.Cleanup(srv.Close)
	return ctl, srv
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if raw["display_state"] != "Clock" {
		t.Fatalf("display_state = %v", raw["display_state"])
	}
	if raw["buffer_bytes"] != float64(4096) || raw["active_slot"] != float64(1) {
		t.Fatalf("payload = %v", raw)
	}
	if _, ok := raw["sample"]; ok {
		t.Fatal("sample should be omitted before the first tick")
	}
}

func TestSaveAndTapEndpoints(t *testing.T) {
	ctl, srv := newTestServer(t)

	for _, path := range []string{"/api/save", "/api/tap"} {
		resp, err := http.Post(srv.URL+path, "text/plain", strings.NewReader(""))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("POST %s = %d", path, resp.StatusCode)
		}
	}
	if ctl.saves.Load() != 1 || ctl.taps.Load() != 1 {
		t.Fatalf("saves=%d taps=%d", ctl.saves.Load(), ctl.taps.Load())
	}

	resp, err := http.Get(srv.URL + "/api/save")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/save = %d", resp.StatusCode)
	}
	if ctl.saves.Load() != 1 {
		t.Fatal("GET must not request a save")
	}
}

func TestStatusWebsocket(t *testing.T) {
	_, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for i := 0; i < 2; i++ {
		var st Status
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if st.DisplayState != ui.Clock || st.BufferBytes != 4096 {
			t.Fatalf("message %d = %+v", i, st)
		}
	}
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStatusServer(&fakeController{}, time.Second)

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

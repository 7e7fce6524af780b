// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/platypus/internal/imu"
	"github.com/relabs-tech/platypus/internal/orientation"
	"github.com/relabs-tech/platypus/internal/ui"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type publishCall struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	calls []publishCall
	token *fakeToken
}

func (p *fakePublisher) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	p.calls = append(p.calls, publishCall{topic: topic, retained: retained, payload: payload.([]byte)})
	return p.token
}

func testStatus() Status {
	return Status{
		Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DisplayState: ui.Stats,
		Reading:      &imu.Reading{Ax: 0.1, Az: 9.81, Temp: 25},
		Tilt:         &orientation.Tilt{Roll: 1.5, Pitch: -2},
		BufferBytes:  3 << 20,
		Pending:      2,
		LastFlush:    &FlushInfo{Error: "disk full"},
	}
}

func TestReporterPublishesStatus(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{done: true}}
	r := NewReporter(testStatus, pub, "platypus/status")
	r.Report()

	if len(pub.calls) != 1 {
		t.Fatalf("publish calls = %d", len(pub.calls))
	}
	call := pub.calls[0]
	if call.topic != "platypus/status" || !call.retained {
		t.Fatalf("call = %+v", call)
	}
	var st Status
	if err := json.Unmarshal(call.payload, &st); err != nil {
		t.Fatal(err)
	}
	if st.DisplayState != ui.Stats || st.Pending != 2 || !st.FlushFailed() {
		t.Fatalf("decoded = %+v", st)
	}
}

func TestReporterPublishErrors(t *testing.T) {
	for name, tok := range map[string]*fakeToken{
		"timeout": {done: false},
		"error":   {done: true, err: errors.New("not connected")},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewReporter(testStatus, &fakePublisher{token: tok}, "t")
			if err := r.publish(testStatus()); err == nil {
				t.Fatal("publish should fail")
			}
		})
	}
}

func TestReporterWithoutPublisher(t *testing.T) {
	r := NewReporter(testStatus, nil, "t")
	r.Report()
	if !r.lastSummary.Equal(testStatus().Time) {
		t.Fatalf("lastSummary = %v", r.lastSummary)
	}
}

func TestReadout(t *testing.T) {
	out := readout(testStatus())
	for _, want := range []string{
		"Time: 2026-03-01 12:00:00",
		"Accelerometer [m/s^2]:",
		"data size: 3.000 MiB",
		"last flush FAILED: disk full",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("readout missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1024, "1024 B"},
		{1536, "1.50 KiB"},
		{3 << 20, "3.000 MiB"},
	}
	for _, c := range cases {
		if got := formatSize(c.n); got != c.want {
			t.Errorf("formatSize(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestConsoleLine(t *testing.T) {
	line := consoleLine(testStatus())
	for _, want := range []string{"[12:00:00]", "state=Stats", "buf=3.000 MiB", "roll=   1.5", "FLUSH FAILED (disk full)", "retries=2"} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}

	st := testStatus()
	st.Saving = true
	if line := consoleLine(st); !strings.Contains(line, "SAVING") || strings.Contains(line, "FAILED") {
		t.Errorf("saving line = %s", line)
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// summaryEvery is the spacing of the info level summary line.
const summaryEvery = 5 * time.Minute

// Publisher is the part of an MQTT client the reporter needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Reporter writes the debug stream and publishes the status over MQTT.
type Reporter struct {
	status  func() Status
	pub     Publisher
	topic   string
	timeout time.Duration

	lastSummary time.Time
}

var reportLog = log.WithField("component", "report")

// NewReporter returns a reporter. pub may be nil to only log.
func NewReporter(status func() Status, pub Publisher, topic string) *Reporter {
	return &Reporter{status: status, pub: pub, topic: topic, timeout: 2 * time.Second}
}

// Run reports every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report emits one round of the debug stream and one status message.
func (r *Reporter) Report() {
	st := r.status()

	if log.IsLevelEnabled(log.TraceLevel) {
		reportLog.Trace(readout(st))
	}
	if st.Time.Sub(r.lastSummary) >= summaryEvery {
		reportLog.Infof("%s | %s", st.Time.Format("2006-01-02 15:04"), formatSize(st.BufferBytes))
		r.lastSummary = st.Time
	}

	if r.pub == nil {
		return
	}
	if err := r.publish(st); err != nil {
		reportLog.Warnf("publish status: %v", err)
	}
}

func (r *Reporter) publish(st Status) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	token := r.pub.Publish(r.topic, 0, true, payload)
	if !token.WaitTimeout(r.timeout) {
		return fmt.Errorf("publish to %s timed out", r.topic)
	}
	return token.Error()
}

// readout is the full multi-line sensor dump.
func readout(st Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %s\n", st.Time.Format("2006-01-02 15:04:05"))
	if rd := st.Reading; rd != nil {
		fmt.Fprintf(&b, "Temperature [C]:\n\t%f\n", rd.Temp)
		fmt.Fprintf(&b, "Accelerometer [m/s^2]:\n\tX: %f\n\tY: %f\n\tZ: %f\n", rd.Ax, rd.Ay, rd.Az)
		fmt.Fprintf(&b, "Gyroscope [deg/s]:\n\tX: %f\n\tY: %f\n\tZ: %f\n", rd.Gx, rd.Gy, rd.Gz)
	}
	fmt.Fprintf(&b, "data size: %s", formatSize(st.BufferBytes))
	if st.FlushFailed() {
		fmt.Fprintf(&b, "\nlast flush FAILED: %s", st.LastFlush.Error)
	}
	return b.String()
}

// ConnectMQTT connects to broker and waits up to 10s for the session.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	appLog.Infof("connected to MQTT broker at %s", broker)
	return client, nil
}

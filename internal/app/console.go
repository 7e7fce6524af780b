// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RunConsole prints every status message published on topic until ctx is
// done.
func RunConsole(ctx context.Context, broker, clientID, topic string, out io.Writer) error {
	client, err := ConnectMQTT(broker, clientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			appLog.Warnf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, consoleLine(st))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	appLog.Infof("console: subscribed to %s", topic)

	<-ctx.Done()
	appLog.Info("console: shutting down")
	return nil
}

func consoleLine(st Status) string {
	line := fmt.Sprintf("[%s] state=%-10s buf=%-12s slot=%d",
		st.Time.Format("15:04:05"), st.DisplayState, formatSize(st.BufferBytes), st.ActiveSlot)
	if rd := st.Reading; rd != nil {
		line += fmt.Sprintf("  a=(%6.2f %6.2f %6.2f) g=(%7.2f %7.2f %7.2f) T=%5.2f",
			rd.Ax, rd.Ay, rd.Az, rd.Gx, rd.Gy, rd.Gz, rd.Temp)
	}
	if tl := st.Tilt; tl != nil {
		line += fmt.Sprintf(" roll=%6.1f pitch=%6.1f", tl.Roll, tl.Pitch)
	}
	switch {
	case st.Saving:
		line += "  SAVING"
	case st.FlushFailed():
		line += "  FLUSH FAILED (" + st.LastFlush.Error + ")"
	}
	if st.Pending > 0 {
		line += fmt.Sprintf("  retries=%d", st.Pending)
	}
	return line
}

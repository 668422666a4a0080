//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Topic layout under the configured prefix:
//
//	<prefix>/bridge/state                     online/offline, retained
//	<prefix>/controller/<id>                  data frames
//	<prefix>/event/<type>                     fleet events
//	<prefix>/controller/<id>/set/rumble       rumble commands (inbound)
//	<prefix>/controller/<id>/set/reset_pose   pose reset commands (inbound)

func frameTopic(prefix string, id int) string {
	return fmt.Sprintf("%s/controller/%d", prefix, id)
}

func eventTopic(prefix, eventType string) string {
	return prefix + "/event/" + eventType
}

func bridgeStateTopic(prefix string) string {
	return prefix + "/bridge/state"
}

func commandFilter(prefix string) string {
	return prefix + "/controller/+/set/#"
}

// parseCommandTopic extracts the controller ID and action from an inbound
// command topic. Returns ok=false for anything not matching the layout.
func parseCommandTopic(prefix, topic string) (id int, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/controller/")
	if !found {
		return 0, "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" {
		return 0, "", false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id < 0 {
		return 0, "", false
	}
	return id, parts[2], true
}

type rumbleCommand struct {
	Amount float32 `json:"amount"`
}

// parseRumblePayload accepts either a JSON object {"amount":0.5} or a bare
// number, since hand-driven mosquitto_pub commands tend to send the latter.
func parseRumblePayload(payload []byte) (float32, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		var cmd rumbleCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return 0, fmt.Errorf("rumble payload: %w", err)
		}
		return cmd.Amount, validateAmount(cmd.Amount)
	}
	v, err := strconv.ParseFloat(trimmed, 32)
	if err != nil {
		return 0, fmt.Errorf("rumble payload: %w", err)
	}
	return float32(v), validateAmount(float32(v))
}

func validateAmount(amount float32) error {
	if amount < 0 || amount > 1 {
		return fmt.Errorf("rumble amount %v out of range 0..1", amount)
	}
	return nil
}

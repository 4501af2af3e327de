package sink

import (
	"encoding/json"
	"fmt"
)

// Controller is the control surface of the weighing pipeline.
type Controller interface {
	Tare()
	Calibrate(referenceWeight int32) (float32, error)
}

// Command types accepted from remote clients.
const (
	CommandTare      = "tare"
	CommandCalibrate = "calibrate"
)

// Command is a remote control request.
//
//	{"type":"tare"}
//	{"type":"calibrate","reference":100}
type Command struct {
	Type      string `json:"type"`
	Reference int32  `json:"reference,omitempty"`
}

// Reply reports the outcome of a Command.
type Reply struct {
	Type        string  `json:"type"`
	OK          bool    `json:"ok"`
	ScaleFactor float32 `json:"scale_factor,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// ParseCommand decodes a JSON command.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid command: %w", err)
	}
	return cmd, nil
}

// Execute runs cmd against ctl.
func Execute(ctl Controller, cmd Command) Reply {
	reply := Reply{Type: cmd.Type}

	switch cmd.Type {
	case CommandTare:
		ctl.Tare()
		reply.OK = true
	case CommandCalibrate:
		factor, err := ctl.Calibrate(cmd.Reference)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.OK = true
		reply.ScaleFactor = factor
	default:
		reply.Error = fmt.Sprintf("unknown command %q", cmd.Type)
	}

	return reply
}

// handleCommand parses, executes and encodes the reply for a raw payload.
func handleCommand(ctl Controller, payload []byte) []byte {
	var reply Reply
	if cmd, err := ParseCommand(payload); err != nil {
		reply = Reply{Type: "error", Error: err.Error()}
	} else {
		reply = Execute(ctl, cmd)
	}

	data, _ := json.Marshal(reply)
	return data
}

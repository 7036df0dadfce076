package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Remote command actions.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// Command is a playback request received from the message bus, for
// example {"action":"start","sequence":"intro"}.
type Command struct {
	Action   string `json:"action"`
	Sequence string `json:"sequence,omitempty"`
}

// ParseCommand decodes and checks a command payload.
func ParseCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	switch cmd.Action {
	case ActionStart:
		if cmd.Sequence == "" {
			return Command{}, fmt.Errorf("%w: start needs a sequence", ErrInvalidCommand)
		}
	case ActionStop:
	default:
		return Command{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
	return cmd, nil
}

// Execute applies cmd to the controller. Sessions started by a command
// live until ctx is cancelled or they finish. Stopping an idle
// controller is not an error.
func (c *Controller) Execute(ctx context.Context, cmd Command) (Status, error) {
	switch cmd.Action {
	case ActionStart:
		return c.Start(ctx, cmd.Sequence)
	case ActionStop:
		st, err := c.Stop()
		if errors.Is(err, ErrNotPlaying) {
			return st, nil
		}
		return st, err
	default:
		return c.Status(), fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
}

// CommandHandler returns a bus message handler that parses each payload
// and executes it. The signature matches mqtt.MessageHandler.
func (c *Controller) CommandHandler(ctx context.Context) func(topic string, payload []byte) error {
	return func(_ string, payload []byte) error {
		cmd, err := ParseCommand(payload)
		if err != nil {
			return err
		}
		st, err := c.Execute(ctx, cmd)
		if err != nil {
			return err
		}
		c.cfg.Logger.Info("remote playback command", "action", cmd.Action, "sequence", cmd.Sequence, "state", st.State)
		return nil
	}
}

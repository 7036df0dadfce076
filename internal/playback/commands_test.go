package playback

import (
	"context"
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr bool
	}{
		{name: "start", payload: `{"action":"start","sequence":"intro"}`, want: Command{Action: ActionStart, Sequence: "intro"}},
		{name: "stop", payload: `{"action":"stop"}`, want: Command{Action: ActionStop}},
		{name: "start without sequence", payload: `{"action":"start"}`, wantErr: true},
		{name: "unknown action", payload: `{"action":"pause"}`, wantErr: true},
		{name: "not json", payload: `start intro`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("ParseCommand() error = %v, want ErrInvalidCommand", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCommandHandler(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "long", 600, 3)

	c := NewController(ControllerConfig{
		Loader: storeLoader{dir: dir, width: 3, frameRate: 10},
		Sink:   &recordingSink{},
	})
	handle := c.CommandHandler(context.Background())

	if err := handle("lightshow/playback/command", []byte(`{"action":"stop"}`)); err != nil {
		t.Errorf("stop while idle error = %v", err)
	}
	if err := handle("lightshow/playback/command", []byte(`{"action":"start","sequence":"long"}`)); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if st := c.Status(); st.State != StatePlaying || st.Sequence != "long" {
		t.Errorf("Status() = %+v, want playing long", st)
	}
	if err := handle("lightshow/playback/command", []byte(`{"action":"start","sequence":"long"}`)); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("second start error = %v, want ErrAlreadyPlaying", err)
	}
	if err := handle("lightshow/playback/command", []byte(`{"action":"stop"}`)); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if st := c.Status(); st.State != StateCancelled {
		t.Errorf("Status() = %+v, want cancelled", st)
	}
	if err := handle("lightshow/playback/command", []byte(`{}`)); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("empty command error = %v, want ErrInvalidCommand", err)
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/receiver"
)

type devicesResponse struct {
	Width    int              `json:"width"`
	Capacity int              `json:"capacity"`
	Devices  []*device.Device `json:"devices"`
}

// handleListDevices returns the stage layout.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	layout := s.registry.Layout()
	writeJSON(w, http.StatusOK, devicesResponse{
		Width:    layout.Width,
		Capacity: s.registry.Capacity(),
		Devices:  layout.Devices,
	})
}

type stateResponse struct {
	Seq        uint64                    `json:"seq"`
	ReceivedAt *time.Time                `json:"received_at,omitempty"`
	Partial    bool                      `json:"partial"`
	Devices    map[string]map[string]any `json:"devices"`
}

func newStateResponse(st *receiver.State) stateResponse {
	resp := stateResponse{Seq: st.Seq, Partial: st.Partial, Devices: receiver.Export(st)}
	if !st.ReceivedAt.IsZero() {
		at := st.ReceivedAt.UTC()
		resp.ReceivedAt = &at
	}
	return resp
}

// handleGetState returns the receiver's latest snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		writeUnavailable(w, "no receiver in this process")
		return
	}
	st := s.state.State()
	if st == nil {
		writeUnavailable(w, "receiver has no state yet")
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(st))
}

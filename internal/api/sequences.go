package api

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lightshow-core/internal/framestore"
	"github.com/nerrad567/lightshow-core/internal/playback"
	"github.com/nerrad567/lightshow-core/internal/receiver"
	"github.com/nerrad567/lightshow-core/internal/sequence"
)

type sequenceSummary struct {
	Name          string           `json:"name"`
	BPM           float64          `json:"bpm"`
	TimeSignature string           `json:"time_signature"`
	FrameRate     float64          `json:"frame_rate"`
	Result        *sequence.Result `json:"result,omitempty"`
	Error         string           `json:"error,omitempty"`
	LastRun       *sequence.Run    `json:"last_run,omitempty"`
}

type sequencesResponse struct {
	Sequences []sequenceSummary `json:"sequences"`
	PlanError string            `json:"plan_error,omitempty"`
}

// handleListSequences lists the manifest's sequences with their latest
// compile outcome.
func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	if s.sequences == nil {
		writeUnavailable(w, "sequence compiler not available")
		return
	}

	jobs, planErr := s.sequences.Plan()
	resp := sequencesResponse{Sequences: make([]sequenceSummary, 0, len(jobs))}
	if planErr != nil {
		resp.PlanError = planErr.Error()
	}

	for _, job := range jobs {
		sum := sequenceSummary{
			Name:          job.Meta.Name,
			BPM:           job.Meta.BPM,
			TimeSignature: job.Meta.TimeSignature,
			FrameRate:     job.Meta.FrameRate,
		}
		if o, ok := s.sequences.Outcome(job.Meta.Name); ok {
			sum.Result = o.Result
			if o.Err != nil {
				sum.Error = o.Err.Error()
			}
		}
		if s.runs != nil {
			if run, err := s.runs.Latest(r.Context(), job.Meta.Name); err == nil {
				sum.LastRun = run
			}
		}
		resp.Sequences = append(resp.Sequences, sum)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListRuns returns recent compile records.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeUnavailable(w, "compile history not available")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit")) //nolint:errcheck // zero falls back to the default
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing compile runs", "error", err)
		writeInternalError(w, "failed to list compile runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleCompileSequence compiles one sequence synchronously. A sequence
// that is playing is refused with 409; a compile that races a start is
// still safe because the new store is swapped in whole and the player
// keeps the store it opened.
func (s *Server) handleCompileSequence(w http.ResponseWriter, r *http.Request) {
	if s.sequences == nil {
		writeUnavailable(w, "sequence compiler not available")
		return
	}
	name := chi.URLParam(r, "name")

	if s.playback != nil {
		if st := s.playback.Status(); st.State == playback.StatePlaying && st.Sequence == name {
			writeConflict(w, name+" is playing")
			return
		}
	}

	res, err := s.sequences.Compile(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, sequence.ErrUnknownSequence):
			writeNotFound(w, err.Error())
		case errors.Is(err, sequence.ErrInvalidDefinition), errors.Is(err, sequence.ErrInvalidMeta):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("compile failed", "sequence", name, "error", err)
			writeInternalError(w, "compile failed: "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type frameResponse struct {
	Sequence string                    `json:"sequence"`
	Frame    int                       `json:"frame"`
	Frames   int                       `json:"frames"`
	Universe string                    `json:"universe"`
	Devices  map[string]map[string]any `json:"devices"`
}

// handleGetFrame decodes one compiled frame.
func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if s.sequences == nil {
		writeUnavailable(w, "sequence compiler not available")
		return
	}
	name := chi.URLParam(r, "name")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "frame index must be a non-negative integer")
		return
	}
	if _, err := s.sequences.Library().Get(name); err != nil {
		writeNotFound(w, err.Error())
		return
	}

	compiler := s.sequences.Compiler()
	store, err := framestore.Open(compiler.StorePath(name), compiler.Width())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeNotFound(w, name+" is not compiled")
			return
		}
		s.logger.Error("opening frame store", "sequence", name, "error", err)
		writeInternalError(w, "failed to open frame store")
		return
	}
	defer store.Close() //nolint:errcheck // read-only

	frame, err := store.FrameAt(index)
	if err != nil {
		if errors.Is(err, framestore.ErrFrameOutOfRange) {
			writeNotFound(w, err.Error())
			return
		}
		writeInternalError(w, "failed to read frame")
		return
	}

	layout := s.registry.Layout()
	dec, err := receiver.NewDecoder(layout.Devices, compiler.Width(), receiver.PolicyReject)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	st, err := dec.Apply(nil, frame, time.Time{})
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{
		Sequence: name,
		Frame:    index,
		Frames:   store.Len(),
		Universe: hex.EncodeToString(frame),
		Devices:  receiver.Export(st),
	})
}

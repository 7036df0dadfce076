package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/framestore"
	"github.com/nerrad567/lightshow-core/internal/infrastructure/database"
	"github.com/nerrad567/lightshow-core/internal/sequence"
	"github.com/nerrad567/lightshow-core/migrations"
)

// storeLoader serves stores written by writeStore.
type storeLoader struct {
	dir       string
	width     int
	frameRate float64
}

func (l storeLoader) Load(name string) (*Program, error) {
	r, err := framestore.Open(filepath.Join(l.dir, name+".dmx"), l.width)
	if err != nil {
		return nil, err
	}
	return &Program{Name: name, FrameRate: l.frameRate, Frames: r}, nil
}

func writeStore(t *testing.T, dir, name string, n, width int) {
	t.Helper()
	w, err := framestore.Create(filepath.Join(dir, name+".dmx"), width)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := range n {
		f := make([]byte, width)
		f[0] = byte(i)
		if err := w.Append(f); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

type statusRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *statusRecorder) record(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st.State)
}

func (r *statusRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

type jsonPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *jsonPublisher) PublishJSON(topic string, _ any, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func TestController_RunsToCompletion(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "intro", 40, 6)

	sink := &recordingSink{}
	rec := &statusRecorder{}
	pub := &jsonPublisher{}
	c := NewController(ControllerConfig{
		Loader:    storeLoader{dir: dir, width: 6, frameRate: 40},
		Sink:      sink,
		Clock:     newFakeClock(),
		Publisher: pub,
		OnStatus:  rec.record,
	})

	st, err := c.Start(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if st.State != StatePlaying || st.SessionID == "" || st.TotalFrames != 40 {
		t.Errorf("Start() = %+v", st)
	}

	final, err := c.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if final.State != StateCompleted || final.Stats.Frames != 40 || final.Frame != 40 {
		t.Errorf("final status = %+v, want completed after 40 frames", final)
	}
	if final.SessionID != st.SessionID || final.FinishedAt == nil {
		t.Errorf("final status = %+v", final)
	}
	if got := rec.all(); len(got) != 2 || got[0] != StatePlaying || got[1] != StateCompleted {
		t.Errorf("status notifications = %v", got)
	}
	if len(pub.topics) != 2 || pub.topics[0] != "lightshow/playback/status" {
		t.Errorf("published topics = %v", pub.topics)
	}
	if len(sink.frames) != 40 {
		t.Errorf("sink received %d frames, want 40", len(sink.frames))
	}

	// Idle again: a new session can start.
	if _, err := c.Start(context.Background(), "intro"); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	c.Wait(context.Background()) //nolint:errcheck // drain
}

func TestController_OneSessionAtATimeAndStop(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "long", 600, 3)

	sink := &recordingSink{}
	c := NewController(ControllerConfig{
		Loader: storeLoader{dir: dir, width: 3, frameRate: 10},
		Sink:   sink,
	})

	if _, err := c.Start(context.Background(), "long"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := c.Start(context.Background(), "long"); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("second Start() error = %v, want ErrAlreadyPlaying", err)
	}

	time.Sleep(50 * time.Millisecond)
	st, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if st.State != StateCancelled {
		t.Errorf("Stop() state = %q, want %q", st.State, StateCancelled)
	}
	if st.Stats.Frames == 0 || st.Stats.Frames >= 600 {
		t.Errorf("Stop() frames = %d, want a partial run", st.Stats.Frames)
	}

	sent := len(sink.frames)
	time.Sleep(150 * time.Millisecond)
	if len(sink.frames) != sent {
		t.Error("frames were sent after Stop()")
	}

	if _, err := c.Stop(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Stop() when idle error = %v, want ErrNotPlaying", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() when idle error = %v", err)
	}
}

func TestController_LoadError(t *testing.T) {
	c := NewController(ControllerConfig{
		Loader: storeLoader{dir: t.TempDir(), width: 3, frameRate: 10},
		Sink:   &recordingSink{},
	})
	if _, err := c.Start(context.Background(), "missing"); err == nil {
		t.Error("Start(missing) error = nil")
	}
	if st := c.Status(); st.State != StateIdle {
		t.Errorf("Status().State = %q, want idle", st.State)
	}
}

func TestController_RecordsSessions(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := NewSQLiteRepository(db.DB)

	dir := t.TempDir()
	writeStore(t, dir, "intro", 12, 3)
	c := NewController(ControllerConfig{
		Loader:    storeLoader{dir: dir, width: 3, frameRate: 40},
		Sink:      &recordingSink{},
		Clock:     newFakeClock(),
		Sessions:  repo,
		Endpoints: []string{"10.0.0.5:5005", "10.0.0.6:5005"},
	})
	st, err := c.Start(ctx, "intro")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Wait(ctx) //nolint:errcheck // completes immediately with a fake clock

	sessions, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.ID != st.SessionID || s.Outcome != StateCompleted || s.Stats.Frames != 12 || len(s.Endpoints) != 2 {
		t.Errorf("session = %+v", s)
	}
	if s.FinishedAt == nil {
		t.Error("session FinishedAt = nil")
	}

	if err := repo.Finish(ctx, &Session{ID: "nope"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Finish(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreLoader(t *testing.T) {
	reg := device.NewRegistry(device.MaxUniverseSize)
	if _, err := reg.Register("par", device.RGB()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	comp, err := sequence.NewCompiler(sequence.CompilerConfig{Devices: reg, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	def := sequence.OutlawStar()
	meta := def.Meta()
	meta.FrameRate = 25
	if _, err := comp.Compile(context.Background(), sequence.Job{Definition: def, Meta: meta}); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	loader := StoreLoader{Compiler: comp}
	prog, err := loader.Load("outlaw-star")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer prog.Close() //nolint:errcheck // Test cleanup

	if prog.FrameRate != 25 || prog.Frames.Width() != 3 || prog.Frames.Len() == 0 {
		t.Errorf("Load() = rate %v width %d len %d", prog.FrameRate, prog.Frames.Width(), prog.Frames.Len())
	}

	if _, err := loader.Load("intro"); !errors.Is(err, sequence.ErrUnknownSequence) {
		t.Errorf("Load(uncompiled) error = %v, want ErrUnknownSequence", err)
	}

	if err := os.Remove(comp.StorePath("outlaw-star")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := loader.Load("outlaw-star"); !errors.Is(err, sequence.ErrUnknownSequence) {
		t.Errorf("Load(missing store) error = %v, want ErrUnknownSequence", err)
	}
}

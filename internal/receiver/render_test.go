package receiver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/lightshow-core/internal/device"
)

type slot struct {
	p atomic.Pointer[State]
}

func (s *slot) State() *State { return s.p.Load() }

func TestRenderLoop_RendersOnlyNewSnapshots(t *testing.T) {
	src := &slot{}
	src.p.Store(&State{Seq: 1})

	seen := make(chan uint64, 16)
	loop := &RenderLoop{
		Source: src,
		Rate:   500,
		Renderers: []Renderer{
			RendererFunc(func(_ context.Context, st *State) error {
				seen <- st.Seq
				return nil
			}),
			RendererFunc(func(context.Context, *State) error {
				return errors.New("broken renderer")
			}),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	if got := <-seen; got != 1 {
		t.Fatalf("first render seq = %d, want 1", got)
	}

	// Several ticks pass with the same snapshot.
	time.Sleep(20 * time.Millisecond)
	select {
	case got := <-seen:
		t.Fatalf("unchanged snapshot rendered again (seq %d)", got)
	default:
	}

	src.p.Store(&State{Seq: 2})
	select {
	case got := <-seen:
		if got != 2 {
			t.Errorf("second render seq = %d, want 2", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("new snapshot was not rendered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestTextRenderer(t *testing.T) {
	dec := testDecoder(t, PolicyReject)
	st, err := dec.Apply(nil, []byte{255, 128, 0, 0, 0, 0, 0, 0, 1}, time.Now())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var buf bytes.Buffer
	r := &TextRenderer{W: &buf, Devices: dec.Devices()}
	if err := r.Render(context.Background(), st); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"--- seq 1", "red=1.00 green=0.50 blue=0.00", "gobo=stars"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Errorf("output has %d lines, want 4", lines)
	}
}

func TestFormatDevice_MissingValue(t *testing.T) {
	reg := device.NewRegistry(0)
	d, err := reg.Register("par", device.RGB())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got := FormatDevice(d, device.Values{"red": 0.25})
	if !strings.Contains(got, "red=0.25 green=? blue=?") {
		t.Errorf("FormatDevice() = %q", got)
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	fail   string
}

func (f *fakePublisher) PublishJSON(topic string, _ any, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !retained {
		return errors.New("state must be retained")
	}
	if topic == f.fail {
		return errors.New("broker down")
	}
	f.topics = append(f.topics, topic)
	return nil
}

func TestStatePublisher_PublishesChangedDevices(t *testing.T) {
	dec := testDecoder(t, PolicyReject)
	first, err := dec.Apply(nil, make([]byte, 9), time.Now())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	second, err := dec.Apply(first, []byte{255, 0, 0, 0, 0, 0, 0, 0, 0}, time.Now())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	pub := &fakePublisher{}
	sp := &StatePublisher{Publisher: pub}
	ctx := context.Background()

	if err := sp.Render(ctx, first); err != nil {
		t.Fatalf("Render(first) error = %v", err)
	}
	if len(pub.topics) != 3 {
		t.Fatalf("first render published %v, want all 3 devices", pub.topics)
	}

	pub.topics = nil
	if err := sp.Render(ctx, second); err != nil {
		t.Fatalf("Render(second) error = %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "lightshow/state/par1" {
		t.Errorf("second render published %v, want only par1", pub.topics)
	}
}

func TestStatePublisher_RetriesFailedDevice(t *testing.T) {
	dec := testDecoder(t, PolicyReject)
	st, err := dec.Apply(nil, make([]byte, 9), time.Now())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	pub := &fakePublisher{fail: "lightshow/state/mover"}
	sp := &StatePublisher{Publisher: pub}
	if err := sp.Render(context.Background(), st); err == nil {
		t.Fatal("Render() error = nil, want publish failure")
	}

	pub.fail = ""
	pub.topics = nil
	if err := sp.Render(context.Background(), st); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "lightshow/state/mover" {
		t.Errorf("retry published %v, want only mover", pub.topics)
	}
}

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/nerrad567/lightshow-core/internal/device"
	"github.com/nerrad567/lightshow-core/internal/receiver"
)

// simulator is what the console inspects. *receiver.NetworkReceiver
// satisfies it.
type simulator interface {
	State() *receiver.State
	Stats() receiver.Stats
	Devices() []*device.Device
	Width() int
}

// console is the interactive inspection prompt. sim must be set before Run.
type console struct {
	rl  *readline.Instance
	sim simulator

	closeOnce sync.Once
}

// newConsole takes over the terminal. It is created before the receiver so
// logging can be routed through it.
func newConsole() (*console, error) {
	c := &console{}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dmxsim> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("state"),
			readline.PcItem("device", readline.PcItemDynamic(c.deviceNames)),
			readline.PcItem("raw"),
			readline.PcItem("stats"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c.rl = rl
	return c, nil
}

func (c *console) deviceNames(string) []string {
	if c.sim == nil {
		return nil
	}
	devs := c.sim.Devices()
	names := make([]string, len(devs))
	for i, d := range devs {
		names[i] = d.Name
	}
	return names
}

// Stderr returns a writer that does not tear the prompt. Log output goes
// here while the console is up.
func (c *console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Close restores the terminal. It is safe to call more than once.
func (c *console) Close() {
	c.closeOnce.Do(func() {
		c.rl.Close() //nolint:errcheck // terminal restore
	})
}

// Run reads commands until quit, EOF or ctx is done. Leaving the console
// cancels the simulator.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc) error {
	defer c.Close()
	defer cancel()

	// Readline blocks; closing it is the only way to interrupt.
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	out := c.rl.Stdout()
	execute(out, c.sim, "help")
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if !execute(out, c.sim, line) {
			fmt.Fprintln(out, "Exiting...")
			return nil
		}
	}
}

// execute runs one console command and reports whether the console should
// keep going.
func execute(out io.Writer, sim simulator, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  state            all devices in the latest snapshot")
		fmt.Fprintln(out, "  device <name>    one device's values")
		fmt.Fprintln(out, "  raw              the universe as hex")
		fmt.Fprintln(out, "  stats            datagram counters")
		fmt.Fprintln(out, "  quit             stop the simulator")

	case "state", "s":
		st := sim.State()
		if st == nil {
			fmt.Fprintln(out, "no state")
			return true
		}
		tr := &receiver.TextRenderer{W: out, Devices: sim.Devices()}
		tr.Render(context.Background(), st) //nolint:errcheck // console output

	case "device", "d":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: device <name>")
			return true
		}
		printDevice(out, sim, args[0])

	case "raw":
		if st := sim.State(); st != nil {
			fmt.Fprintf(out, "seq %d width %d\n%s\n", st.Seq, sim.Width(), hex.EncodeToString(st.Universe))
		}

	case "stats":
		s := sim.Stats()
		fmt.Fprintf(out, "received=%d rejected=%d timeouts=%d\n", s.Received, s.Rejected, s.Timeouts)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(out, "unknown command %q (try help)\n", cmd)
	}
	return true
}

func printDevice(out io.Writer, sim simulator, name string) {
	for _, d := range sim.Devices() {
		if d.Name != name {
			continue
		}
		var values device.Values
		if st := sim.State(); st != nil {
			values, _ = st.Device(name)
		}
		fmt.Fprintln(out, receiver.FormatDevice(d, values))
		fmt.Fprintf(out, "  offset %d width %d fixture %s\n", d.Offset, d.Width, d.Fixture)
		return
	}
	fmt.Fprintf(out, "unknown device %q\n", name)
}

package sequence

import (
	"fmt"
	"math/rand/v2"

	"github.com/nerrad567/lightshow-core/internal/musictime"
	"github.com/nerrad567/lightshow-core/internal/timeline"
)

// Builtins returns the sequences compiled into the binary.
func Builtins() []Definition {
	return []Definition{Intro(), OutlawStar()}
}

// Intro is the house-lights-to-show opener: a yellow wash, the intro
// sting, the logo reveal on the rear screen, rain and four fireworks on
// the front screen.
func Intro() Definition {
	meta := Meta{Name: "intro", BPM: 60, TimeSignature: "4:4"}
	return New(meta, func(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error {
		yellow, _ := Color("YELLOW")
		lights := colorDevices(dc)
		if len(lights) > 0 {
			if err := tl.Set(lights, yellow, 0); err != nil {
				return err
			}
			if err := tl.Set(lights, yellow, 130); err != nil {
				return err
			}
		}

		c := cueSheet{t: t, el: el}
		c.add("1.1.1", timeline.Trigger{DeviceID: "audio", Action: "audio.start", Source: meta.Name + "/hibana_intro.ogg"})
		c.add("2.1.1", timeline.Trigger{
			DeviceID: "rear",
			Action:   "gsap.start",
			Payload: map[string]any{
				"duration": 120,
				"elements": map[string]any{
					"logo": map[string]any{"src": "logo/superLimitBreak_logo.svg", "height": "1vh", "className": "center"},
				},
			},
		})
		c.add("3.1.1", timeline.Trigger{
			DeviceID: "front",
			Action:   "particles.start",
			Payload:  map[string]any{"emitter": "rain", "image": "assets/HardRain.png", "frequency": 0.004, "maxParticles": 1000},
		})

		// Fixed seed: the same show must compile to the same bytes.
		rng := rand.New(rand.NewPCG(0x1e7, 0x5ea))
		for _, pos := range []string{"4.1.1", "5.1.1", "6.1.1", "7.1.1"} {
			c.add(pos, timeline.Trigger{
				DeviceID: "front",
				Action:   "particles.start",
				Payload: map[string]any{
					"emitter": "firework",
					"image":   "assets/Sparks.png",
					"x":       fmt.Sprintf("%.3fvw", rng.Float64()),
					"y":       fmt.Sprintf("%.3fvh", rng.Float64()),
				},
			})
		}
		return c.err
	})
}

// OutlawStar holds cyan for seven bars, turns red on bar 8, and puts the
// credits and logo on the side screen.
func OutlawStar() Definition {
	meta := Meta{Name: "outlaw-star", BPM: 108, TimeSignature: "4:4"}
	return New(meta, func(dc DeviceCollection, t musictime.TimeFunc, tl *timeline.Builder, el *timeline.EventList) error {
		cyan, _ := Color("CYAN")
		red, _ := Color("RED")

		lights := colorDevices(dc)
		if len(lights) > 0 {
			if err := tl.Set(lights, cyan, 0); err != nil {
				return err
			}
			f, err := t("8.1.1")
			if err != nil {
				return err
			}
			if err := tl.Set(lights, red, f); err != nil {
				return err
			}
		}

		c := cueSheet{t: t, el: el}
		c.add("1.1.1", timeline.Trigger{DeviceID: "audio", Action: "audio.start", Source: meta.Name + "/audio.ogg"})
		c.add("2.1.1", timeline.Trigger{
			DeviceID: "side",
			Action:   "text.html_bubble",
			Payload: map[string]any{
				"html": "<h1>Through the Night</h1><p>Outlaw Star</p><p>Arimachi Masahiko</p>",
			},
		})
		c.add("2.1.1", timeline.Trigger{
			DeviceID: "side",
			Action:   "image.start",
			Source:   meta.Name + "/outlaw_star_logo.png",
			Payload:  map[string]any{"width": "100%"},
		})
		return c.err
	})
}

// cueSheet adds triggers at musical positions and keeps the first error.
type cueSheet struct {
	t   musictime.TimeFunc
	el  *timeline.EventList
	err error
}

func (c *cueSheet) add(position string, tr timeline.Trigger) {
	if c.err != nil {
		return
	}
	f, err := c.t(position)
	if err != nil {
		c.err = err
		return
	}
	tr.Frame = f
	c.err = c.el.AddTrigger(tr)
}

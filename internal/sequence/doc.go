// Package sequence turns show definitions into compiled frame stores.
//
// A Definition supplies Meta (tempo, time signature, frame rate, duration)
// and a CreateTimeline callback that records step instructions and media
// triggers against the stage's devices. Definitions come from two places:
//
//   - Built-ins registered in Go (Intro, OutlawStar)
//   - Declarative YAML cue files in the sequences directory
//
// A Library holds the available definitions; a Manifest selects which ones
// to compile and layers meta defaults and overrides over each definition.
// The Compiler renders one sequence to "<name>.dmx" plus an
// "<name>.events.cbor" trigger sidecar, and the Manager compiles a batch in
// parallel with each sequence succeeding or failing on its own.
//
// # Compile Pipeline
//
//	Meta → musictime.Resolver → Definition.CreateTimeline
//	     → timeline.Builder.Render → framestore.Writer
//	     → events sidecar → compile record → MQTT / InfluxDB
//
// # Thread Safety
//
// Library and Manager are safe for concurrent use. A Compiler may run
// several compiles at once; each compile owns its own builder and writer.
package sequence

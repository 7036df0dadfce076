// Package discovery finds simulators and receivers on the local network
// over mDNS/DNS-SD.
//
// A receiver advertises a "_lightshow-dmx._udp" service whose port is its
// UDP listen port. TXT records carry the universe width and the software
// version so a player can skip receivers laid out for a different stage.
//
//	adv, err := discovery.Advertise(discovery.Info{Instance: "dmxsim", Port: 5005, Width: 15}, nil)
//	defer adv.Stop()
//
//	services, err := discovery.Browse(ctx, 2*time.Second, nil)
//	endpoints := discovery.Endpoints(services, registry.Width())
package discovery

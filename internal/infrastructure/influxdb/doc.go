// Package influxdb records show telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched point writes, and health monitoring.
//
// # Measurements
//
//   - playback_frame: per-frame send lateness during playback
//   - playback_session: totals for a finished playback run
//   - compile_run: frame count, dropped instructions, and elapsed time per compile
//   - receiver_stats: datagram counters reported by the simulator
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Show.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WritePlaybackFrame("outlaw-star", 120, 3*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// callback set with SetOnError. Connection and health check errors are
// returned directly.
package influxdb

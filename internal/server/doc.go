// Package server implements the MCP (Model Context Protocol) server for line
// profile analysis.
//
// The server exposes a JSON-RPC 2.0 interface over stdio. A client loads a
// test-pattern image, clicks two points on it, and asks for the brightness
// profile between them with rising and falling edges marked.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Images:
//   - image_load: Load and fit an image, start a selection session
//   - image_dimensions: Get original and display width and height
//   - image_sample_color: Get color and scalar at a pixel
//   - image_generate_pattern: Write a step, gradient, bar or checker target
//
// Selection:
//   - profile_select_point: Feed a click; clicks alternate between A and B
//   - profile_reset: Clear both endpoints
//
// Profiles:
//   - profile_compute: Sample, reduce and classify the segment
//   - profile_render: Overlay and plot as PNG
//   - profile_zoom: Magnified crop around the segment
//   - image_measure_distance: Segment length, calibrated when possible
//   - image_measure_blob: Two perpendicular axes of an object, such as a spore
//
// Calibrations:
//   - calibration_add, calibration_select, calibration_list
//
// # Sessions
//
// Each image path has its own endpoint selector. Profiles are pulled: every
// profile_compute recomputes from the current endpoints, and edge events are
// logged only on the first compute after an endpoint changes. Explicit
// x1/y1/x2/y2 arguments bypass the session.
//
// All coordinates refer to the image after it has been fitted into the
// display box (800x600 unless configured otherwise).
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A segment that cannot be profiled (incomplete, outside the image, or
// shorter than two samples) is not an error; profile_compute returns a
// profile with valid=false and a reason.
//
// # Usage
//
//	srv := server.New(cfg, version, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server

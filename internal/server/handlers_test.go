package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/line-profile-mcp/internal/imaging"
	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// callToolOK calls a tool, fails on error and decodes the text content into v.
func callToolOK(t *testing.T, s *Server, name string, args map[string]interface{}, v interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %v (%v)", name, resp.Error.Message, resp.Error.Data)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	text := content[0]["text"].(string)
	if v == nil {
		return
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("%s: failed to decode result: %v\n%s", name, err, text)
	}
}

// callToolErr calls a tool and fails unless it returns a tool error.
func callToolErr(t *testing.T, s *Server, name string, args map[string]interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s %v: expected error", name, args)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("%s: error code got %d, want -32000", name, resp.Error.Code)
	}
}

// stepPattern writes a 10x10 step pattern (edge at column 5) and loads it.
func stepPattern(t *testing.T, s *Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "step.png")
	callToolOK(t, s, "image_generate_pattern", map[string]interface{}{
		"path": path, "pattern": "step", "width": 10, "height": 10,
	}, nil)
	callToolOK(t, s, "image_load", map[string]interface{}{"path": path}, nil)
	return path
}

type computeResult struct {
	profile.Profile
	State string `json:"selector_state"`
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`not json`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer()
	callToolErr(t, s, "image_ocr_full", map[string]interface{}{})
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 1600, 1200, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	callToolOK(t, s, "image_load", map[string]interface{}{"path": path}, &info)

	if info.Width != 1600 || info.Height != 1200 {
		t.Errorf("original size: got %dx%d", info.Width, info.Height)
	}
	if info.DisplayWidth != 800 || info.DisplayHeight != 600 {
		t.Errorf("display size: got %dx%d, want 800x600", info.DisplayWidth, info.DisplayHeight)
	}
	if info.Scale != 0.5 {
		t.Errorf("scale: got %v, want 0.5", info.Scale)
	}

	var dims imaging.DimensionsResult
	callToolOK(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims)
	if dims.Width != 1600 || dims.Height != 1200 {
		t.Errorf("dimensions: got %dx%d", dims.Width, dims.Height)
	}
	// Coordinates passed to the profile tools are bounded by the display size.
	if dims.DisplayWidth != 800 || dims.DisplayHeight != 600 {
		t.Errorf("display dimensions: got %dx%d, want 800x600", dims.DisplayWidth, dims.DisplayHeight)
	}

	callToolErr(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/file.png"})
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 20, 20, color.RGBA{255, 128, 64, 255})

	var result imaging.ColorResult
	callToolOK(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 3, "y": 4}, &result)
	if result.Hex != "#FF8040" {
		t.Errorf("hex: got %s, want #FF8040", result.Hex)
	}
	if result.Scalar != 255 {
		t.Errorf("scalar should clamp to the configured max, got %v", result.Scalar)
	}

	callToolErr(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 20, "y": 0})
}

func TestHandleToolsCall_GeneratePattern(t *testing.T) {
	s := newTestServer()
	path := filepath.Join(t.TempDir(), "out", "checker.png")

	var result generatedPattern
	callToolOK(t, s, "image_generate_pattern", map[string]interface{}{"path": path, "pattern": "checker"}, &result)
	if result.Width != 400 || result.Height != 200 {
		t.Errorf("default size: got %dx%d, want 400x200", result.Width, result.Height)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("pattern not written: %v", err)
	}

	callToolErr(t, s, "image_generate_pattern", map[string]interface{}{"path": path, "pattern": "zigzag"})
	callToolErr(t, s, "image_generate_pattern", map[string]interface{}{"pattern": "step"})
}

func TestProfileWorkflow(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)

	var sel selectionResult
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 0, "y": 5}, &sel)
	if sel.Selected != "a" || sel.State != "awaiting_b" {
		t.Errorf("first click: got selected=%s state=%s", sel.Selected, sel.State)
	}

	// Half a profile is a no-op, not an error.
	var got computeResult
	callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, &got)
	if got.Valid || got.Reason != profile.ReasonIncomplete {
		t.Errorf("incomplete selection: valid=%v reason=%q", got.Valid, got.Reason)
	}

	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 9, "y": 5}, &sel)
	if sel.Selected != "b" || sel.State != "awaiting_a" || !sel.Endpoints.HasB {
		t.Errorf("second click: got %+v", sel)
	}

	got = computeResult{}
	callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, &got)
	if !got.Valid {
		t.Fatalf("profile should be valid: %s", got.Reason)
	}
	if len(got.Samples) != 9 {
		t.Errorf("samples: got %d, want 9", len(got.Samples))
	}
	if len(got.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(got.Events))
	}
	e := got.Events[0]
	if e.Index != 5 || e.Direction != profile.Falling || e.Delta != 255 {
		t.Errorf("event: got %+v, want index 5 falling delta 255", e)
	}
	if got.State != "awaiting_a" {
		t.Errorf("selector_state: got %s", got.State)
	}

	// Reversed by explicit endpoints, the edge becomes rising.
	got = computeResult{}
	callToolOK(t, s, "profile_compute", map[string]interface{}{
		"path": path, "x1": 9, "y1": 5, "x2": 0, "y2": 5,
	}, &got)
	if len(got.Events) != 1 || got.Events[0].Direction != profile.Rising {
		t.Errorf("reversed: got %+v", got.Events)
	}

	var reset selectionResult
	callToolOK(t, s, "profile_reset", map[string]interface{}{"path": path}, &reset)
	if reset.State != "awaiting_a" || reset.Endpoints.HasA || reset.Endpoints.HasB {
		t.Errorf("reset: got %+v", reset)
	}
}

func TestProfileCompute_LogsOncePerSelection(t *testing.T) {
	var buf bytes.Buffer
	profile.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer profile.SetLogger(nil)

	s := newTestServer()
	path := stepPattern(t, s)
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 0, "y": 5}, nil)
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 9, "y": 5}, nil)

	for i := 0; i < 3; i++ {
		callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, nil)
	}
	// Rendering recomputes without consuming the selection.
	callToolOK(t, s, "profile_render", map[string]interface{}{"path": path}, nil)

	if got := strings.Count(buf.String(), "msg=edge"); got != 1 {
		t.Errorf("edge logged %d times, want 1:\n%s", got, buf.String())
	}

	// Moving an endpoint logs again.
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 1, "y": 5}, nil)
	callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, nil)
	if got := strings.Count(buf.String(), "msg=edge"); got != 2 {
		t.Errorf("edge logged %d times after reselect, want 2", got)
	}
}

func TestProfileCompute_Options(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)
	segment := map[string]interface{}{"path": path, "x1": 0, "y1": 5, "x2": 9, "y2": 5}

	with := func(extra map[string]interface{}) map[string]interface{} {
		args := make(map[string]interface{})
		for k, v := range segment {
			args[k] = v
		}
		for k, v := range extra {
			args[k] = v
		}
		return args
	}

	var got computeResult
	callToolOK(t, s, "profile_compute", with(map[string]interface{}{"threshold": 300}), &got)
	if len(got.Events) != 0 || got.Threshold != 300 {
		t.Errorf("threshold 300: got %d events, threshold %v", len(got.Events), got.Threshold)
	}

	got = computeResult{}
	callToolOK(t, s, "profile_compute", with(map[string]interface{}{"mode": "swatch"}), &got)
	if got.Mode != "swatch" || len(got.Events) != 0 || len(got.Samples) != 9 {
		t.Errorf("swatch: mode=%s events=%d samples=%d", got.Mode, len(got.Events), len(got.Samples))
	}

	got = computeResult{}
	callToolOK(t, s, "profile_compute", with(map[string]interface{}{"max_value": 100}), &got)
	if got.Stats.Max != 100 || got.Events[0].Delta != 100 {
		t.Errorf("max_value 100: stats max %v, delta %v", got.Stats.Max, got.Events[0].Delta)
	}

	got = computeResult{}
	callToolOK(t, s, "profile_compute", with(nil), &got)
	if got.Threshold != profile.DefaultThreshold || len(got.Events) != 1 {
		t.Errorf("default threshold: got %v with %d events", got.Threshold, len(got.Events))
	}

	got = computeResult{}
	callToolOK(t, s, "profile_compute", with(map[string]interface{}{"threshold": 0.5}), &got)
	if got.Threshold != 0.5 {
		t.Errorf("threshold 0.5: reported %v", got.Threshold)
	}

	callToolErr(t, s, "profile_compute", with(map[string]interface{}{"threshold": 0}))
	callToolErr(t, s, "profile_compute", with(map[string]interface{}{"threshold": -1}))
	callToolErr(t, s, "profile_compute", with(map[string]interface{}{"max_value": -5}))
	callToolErr(t, s, "profile_compute", with(map[string]interface{}{"max_value": 1e18}))
	callToolErr(t, s, "profile_compute", with(map[string]interface{}{"mode": "bogus"}))
	callToolErr(t, s, "profile_compute", map[string]interface{}{"path": path, "x1": 0, "y1": 5})
}

func TestProfileCompute_OutOfBounds(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)

	var sel selectionResult
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 50, "y": 5}, &sel)
	if sel.InBounds == nil || *sel.InBounds {
		t.Error("click outside the image should be reported as out of bounds")
	}
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 9, "y": 5}, nil)

	var got computeResult
	callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, &got)
	if got.Valid || got.Reason != profile.ReasonOutOfBounds {
		t.Errorf("got valid=%v reason=%q", got.Valid, got.Reason)
	}
}

func TestProfileRender(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)

	var enc imaging.EncodedImage
	callToolOK(t, s, "profile_render", map[string]interface{}{
		"path": path, "x1": 0, "y1": 5, "x2": 9, "y2": 5, "show_labels": false,
	}, &enc)
	if enc.MimeType != "image/png" || enc.ImageBase64 == "" {
		t.Errorf("unexpected render result: %+v", enc)
	}
	if enc.Width != 200 || enc.Height != 10+255+20 {
		t.Errorf("render size: got %dx%d", enc.Width, enc.Height)
	}

	callToolErr(t, s, "profile_render", map[string]interface{}{"path": path, "line_color": "nope"})
}

func TestProfileRender_MaxValue(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)
	segment := map[string]interface{}{"path": path, "x1": 0, "y1": 5, "x2": 9, "y2": 5}

	// The plot never grows past the brightest reachable scalar.
	args := map[string]interface{}{"max_value": 65535}
	for k, v := range segment {
		args[k] = v
	}
	var enc imaging.EncodedImage
	callToolOK(t, s, "profile_render", args, &enc)
	if enc.Height != 10+442+20 {
		t.Errorf("render height: got %d, want %d", enc.Height, 10+442+20)
	}

	args["max_value"] = 1e18
	resp := callTool(t, s, "profile_render", args)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("max_value 1e18: expected tool error, got %+v", resp.Error)
	}
	if !strings.Contains(fmt.Sprint(resp.Error.Data), "max_value") {
		t.Errorf("error should name max_value, got %q", resp.Error.Data)
	}

	// The server keeps answering after the rejected call.
	callToolOK(t, s, "profile_render", segment, &enc)
}

func TestSafeExecuteTool_RecoversPanic(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)
	// Without a cache every image lookup dereferences nil.
	s.cache = nil

	resp := callTool(t, s, "profile_compute", map[string]interface{}{"path": path, "x1": 0, "y1": 5, "x2": 9, "y2": 5})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected tool error, got %+v", resp.Error)
	}
	if !strings.Contains(fmt.Sprint(resp.Error.Data), "profile_compute") {
		t.Errorf("error should name the tool, got %q", resp.Error.Data)
	}
}

func TestProfileZoom(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)

	callToolErr(t, s, "profile_zoom", map[string]interface{}{"path": path})

	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 2, "y": 5}, nil)
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 7, "y": 5}, nil)

	var zoom imaging.ZoomResult
	callToolOK(t, s, "profile_zoom", map[string]interface{}{"path": path, "padding": 1, "scale": 2}, &zoom)
	want := imaging.Region{X1: 1, Y1: 4, X2: 9, Y2: 7}
	if zoom.Region != want {
		t.Errorf("region: got %+v, want %+v", zoom.Region, want)
	}
	if zoom.Width != 16 || zoom.Height != 6 {
		t.Errorf("zoom size: got %dx%d, want 16x6", zoom.Width, zoom.Height)
	}
}

func TestCalibrationTools(t *testing.T) {
	s := newTestServer()
	path := stepPattern(t, s)

	var list calibrationList
	callToolOK(t, s, "calibration_list", nil, &list)
	if len(list.Calibrations) != 0 || list.Active != "" {
		t.Errorf("fresh server should have no calibrations: %+v", list)
	}

	// Measuring without a calibration reports pixels only.
	var m imaging.SegmentMeasurement
	callToolOK(t, s, "image_measure_distance", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 6, "y2": 8,
	}, &m)
	if m.DistancePixels != 10 || m.DistanceMicrons != nil {
		t.Errorf("uncalibrated: got %+v", m)
	}

	var cal profile.Calibration
	callToolOK(t, s, "calibration_add", map[string]interface{}{"name": "40x", "pixel_length": 100, "microns": 8.1}, &cal)
	if cal.PixelsPerMicron != 12.346 {
		t.Errorf("40x ratio: got %v, want 12.346", cal.PixelsPerMicron)
	}

	// A calibration can also come from the selected segment.
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 0, "y": 0}, nil)
	callToolOK(t, s, "profile_select_point", map[string]interface{}{"path": path, "x": 6, "y": 8}, nil)
	callToolOK(t, s, "calibration_add", map[string]interface{}{"name": "10x", "path": path, "microns": 5}, &cal)
	if cal.PixelsPerMicron != 2 {
		t.Errorf("10x ratio: got %v, want 2", cal.PixelsPerMicron)
	}

	callToolOK(t, s, "calibration_list", nil, &list)
	if len(list.Calibrations) != 2 || list.Calibrations[0].Name != "10x" || list.Active != "40x" {
		t.Errorf("list: got %+v", list)
	}

	callToolOK(t, s, "calibration_select", map[string]interface{}{"name": "10x"}, nil)
	callToolOK(t, s, "image_measure_distance", map[string]interface{}{"path": path}, &m)
	if m.DistanceMicrons == nil || *m.DistanceMicrons != 5 || m.Calibration != "10x" {
		t.Errorf("calibrated measurement: got %+v", m)
	}

	var got computeResult
	callToolOK(t, s, "profile_compute", map[string]interface{}{"path": path}, &got)
	if got.LengthMicrons == nil || *got.LengthMicrons != 5 || got.Calibration != "10x" {
		t.Errorf("profile length: got %v (%s)", got.LengthMicrons, got.Calibration)
	}

	callToolErr(t, s, "calibration_add", map[string]interface{}{"name": "10x", "pixel_length": 10, "microns": 1})
	callToolErr(t, s, "calibration_add", map[string]interface{}{"name": "bad", "pixel_length": 10, "microns": 0})
	callToolErr(t, s, "calibration_add", map[string]interface{}{"name": "nosegment", "microns": 1})
	callToolErr(t, s, "calibration_select", map[string]interface{}{"name": "100x"})
}

func TestCalibrationAdd_RatioTooSmall(t *testing.T) {
	s := newTestServer()
	callToolErr(t, s, "calibration_add", map[string]interface{}{"name": "tiny", "pixel_length": 0.0001, "microns": 1000})

	var list calibrationList
	callToolOK(t, s, "calibration_list", nil, &list)
	if len(list.Calibrations) != 0 || list.Active != "" {
		t.Errorf("rejected calibration should not be stored: %+v", list)
	}
}

func TestImageMeasureBlob(t *testing.T) {
	s := newTestServer()
	path := filepath.Join(t.TempDir(), "spore.png")
	callToolOK(t, s, "image_generate_pattern", map[string]interface{}{
		"path": path, "pattern": "checker", "width": 100, "height": 100,
	}, nil)

	points := func(coords ...float64) []map[string]interface{} {
		var pts []map[string]interface{}
		for i := 0; i+1 < len(coords); i += 2 {
			pts = append(pts, map[string]interface{}{"x": coords[i], "y": coords[i+1]})
		}
		return pts
	}

	var m profile.BlobMeasurement
	callToolOK(t, s, "image_measure_blob", map[string]interface{}{
		"path": path, "points": points(10, 50, 90, 50, 50, 20, 50, 80),
	}, &m)
	if m.Line1.LengthPixels != 80 || m.Line2.LengthPixels != 60 {
		t.Errorf("lengths: got %v and %v, want 80 and 60", m.Line1.LengthPixels, m.Line2.LengthPixels)
	}
	if m.Crossing != profile.Pt(50, 50) || m.Line1.LengthMicrons != nil {
		t.Errorf("uncalibrated blob: got %+v", m)
	}

	callToolOK(t, s, "calibration_add", map[string]interface{}{"name": "40x", "pixel_length": 80, "microns": 40}, nil)
	m = profile.BlobMeasurement{}
	callToolOK(t, s, "image_measure_blob", map[string]interface{}{
		"path": path, "points": points(10, 50, 90, 50, 50, 20, 50, 80),
	}, &m)
	if m.Calibration != "40x" || m.Line1.LengthMicrons == nil || *m.Line1.LengthMicrons != 40 ||
		m.Line2.LengthMicrons == nil || *m.Line2.LengthMicrons != 30 {
		t.Errorf("calibrated blob: got %+v", m)
	}

	callToolErr(t, s, "image_measure_blob", map[string]interface{}{"path": path, "points": points(10, 50, 90, 50, 50, 20)})
	callToolErr(t, s, "image_measure_blob", map[string]interface{}{"path": path, "points": points(10, 50, 150, 50, 50, 20, 50, 80)})
	callToolErr(t, s, "image_measure_blob", map[string]interface{}{"path": path, "points": points(10, 50, 90, 50, 95, 20, 95, 80)})
	callToolErr(t, s, "image_measure_blob", map[string]interface{}{"path": path, "points": points(10, 50, 90, 50, 50, 20, 50, 40)})
	callToolErr(t, s, "image_measure_blob", map[string]interface{}{"points": points(10, 50, 90, 50, 50, 20, 50, 80)})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/ironsheep/line-profile-mcp/internal/config"
	"github.com/ironsheep/line-profile-mcp/internal/imaging"
	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "profile_compute").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	s.logger.Debug("tool call", slog.String("tool", params.Name))
	result, err := s.safeExecuteTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", slog.String("tool", params.Name), slog.Any("err", err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_generate_pattern":
		return s.handleImageGeneratePattern(args)

	// Selection
	case "profile_select_point":
		return s.handleProfileSelectPoint(args)
	case "profile_reset":
		return s.handleProfileReset(args)

	// Profiles
	case "profile_compute":
		return s.handleProfileCompute(args)
	case "profile_render":
		return s.handleProfileRender(args)
	case "profile_zoom":
		return s.handleProfileZoom(args)
	case "image_measure_distance":
		return s.handleImageMeasureDistance(args)
	case "image_measure_blob":
		return s.handleImageMeasureBlob(args)

	// Calibrations
	case "calibration_add":
		return s.handleCalibrationAdd(args)
	case "calibration_select":
		return s.handleCalibrationSelect(args)
	case "calibration_list":
		return s.handleCalibrationList(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// safeExecuteTool runs executeTool, reporting a handler panic as a tool error.
func (s *Server) safeExecuteTool(name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", slog.String("tool", name), slog.Any("panic", r))
			result, err = nil, fmt.Errorf("internal error in %s: %v", name, r)
		}
	}()
	return s.executeTool(name, args)
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// display returns the fitted image all profile coordinates refer to.
func (s *Server) display(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.cache.LoadFitted(path, s.cfg.DisplayWidth, s.cfg.DisplayHeight)
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path, s.cfg.DisplayWidth, s.cfg.DisplayHeight)
	if err != nil {
		return nil, err
	}
	// Loading an image starts a fresh selection on it.
	s.dropSelector(a.Path)
	s.selector(a.Path)
	return info, nil
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path, s.cfg.DisplayWidth, s.cfg.DisplayHeight)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y, s.cfg.MaxValue)
}

type imageGeneratePatternArgs struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type generatedPattern struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (s *Server) handleImageGeneratePattern(args json.RawMessage) (interface{}, error) {
	var a imageGeneratePatternArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	if a.Width == 0 {
		a.Width = 400
	}
	if a.Height == 0 {
		a.Height = 200
	}

	img, err := imaging.GeneratePattern(a.Pattern, a.Width, a.Height)
	if err != nil {
		return nil, err
	}
	if err := imaging.SavePNG(a.Path, img); err != nil {
		return nil, err
	}
	// The file may replace one that is already cached.
	s.cache.Evict(a.Path)
	s.dropSelector(a.Path)

	return &generatedPattern{Path: a.Path, Pattern: a.Pattern, Width: a.Width, Height: a.Height}, nil
}

// === Selection Handlers ===

type selectPointArgs struct {
	Path string  `json:"path"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// selectionResult reports a selection session after a change.
type selectionResult struct {
	Selected  string            `json:"selected,omitempty"`
	State     string            `json:"state"`
	Endpoints profile.Endpoints `json:"endpoints"`
	InBounds  *bool             `json:"in_bounds,omitempty"`
}

func (s *Server) handleProfileSelectPoint(args json.RawMessage) (interface{}, error) {
	var a selectPointArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, err
	}

	p := profile.Pt(a.X, a.Y)
	sel := s.selector(a.Path)
	state := sel.Select(p)

	// The state after the transition names the endpoint still to come.
	selected := "b"
	if state == profile.AwaitingB {
		selected = "a"
	}
	inBounds := profile.InBounds(p, img.Bounds())
	return &selectionResult{
		Selected:  selected,
		State:     state.String(),
		Endpoints: sel.Endpoints(),
		InBounds:  &inBounds,
	}, nil
}

func (s *Server) handleProfileReset(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	sel := s.selector(a.Path)
	sel.Reset()
	return &selectionResult{State: sel.State().String(), Endpoints: sel.Endpoints()}, nil
}

// === Profile Handlers ===

// segmentArgs carries optional explicit endpoints. All four coordinates
// must be given together.
type segmentArgs struct {
	Path string   `json:"path"`
	X1   *float64 `json:"x1"`
	Y1   *float64 `json:"y1"`
	X2   *float64 `json:"x2"`
	Y2   *float64 `json:"y2"`
}

// endpoints resolves the segment for a request. Explicit coordinates win
// over the selection session. fresh reports whether the endpoints are new
// since the last profile: always true for explicit coordinates, and the
// selector's one-shot flag otherwise when consume is set.
func (s *Server) endpoints(a segmentArgs, consume bool) (ep profile.Endpoints, fresh bool, err error) {
	given := 0
	for _, v := range []*float64{a.X1, a.Y1, a.X2, a.Y2} {
		if v != nil {
			given++
		}
	}
	switch given {
	case 4:
		return profile.Endpoints{
			A:    profile.Pt(*a.X1, *a.Y1),
			B:    profile.Pt(*a.X2, *a.Y2),
			HasA: true,
			HasB: true,
		}, true, nil
	case 0:
		sel := s.selector(a.Path)
		ep = sel.Endpoints()
		if consume {
			fresh = sel.TakeJustSelected()
		}
		return ep, fresh, nil
	default:
		return ep, false, errors.New("x1, y1, x2 and y2 must be given together")
	}
}

type profileArgs struct {
	segmentArgs
	Threshold *float64 `json:"threshold"`
	MaxValue  float64  `json:"max_value"`
	Mode      string   `json:"mode"`
}

func (a profileArgs) options(defaultMax float64) (profile.Options, error) {
	var opts profile.Options
	if a.Threshold != nil {
		if *a.Threshold <= 0 {
			return opts, fmt.Errorf("invalid threshold %v: must be > 0", *a.Threshold)
		}
		opts.Threshold = *a.Threshold
	}
	if a.MaxValue < 0 || a.MaxValue > config.MaxValueLimit {
		return opts, fmt.Errorf("invalid max_value %v: must be in (0, %d]", a.MaxValue, config.MaxValueLimit)
	}
	switch a.Mode {
	case "", profile.ModeEdges.String(), profile.ModeSwatch.String():
	default:
		return opts, fmt.Errorf("unknown mode: %s", a.Mode)
	}
	opts.MaxValue = a.MaxValue
	if opts.MaxValue == 0 {
		opts.MaxValue = defaultMax
	}
	opts.Mode = profile.ParseMode(a.Mode)
	return opts, nil
}

// profileResult is a computed profile plus the session state it came from.
type profileResult struct {
	*profile.Profile
	State string `json:"selector_state"`
}

// recompute runs the analyzer for a request. Edge events are logged only
// when the endpoints changed since the previous compute.
func (s *Server) recompute(a profileArgs, consume bool) (image.Image, *profile.Profile, error) {
	opts, err := a.options(s.cfg.MaxValue)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, nil, err
	}
	ep, fresh, err := s.endpoints(a.segmentArgs, consume)
	if err != nil {
		return nil, nil, err
	}
	opts.EmitLog = fresh
	return img, s.analyzer.Recompute(img, ep, opts), nil
}

func (s *Server) handleProfileCompute(args json.RawMessage) (interface{}, error) {
	var a profileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, p, err := s.recompute(a, true)
	if err != nil {
		return nil, err
	}
	return &profileResult{Profile: p, State: s.selector(a.Path).State().String()}, nil
}

type profileRenderArgs struct {
	profileArgs
	LineColor    string `json:"line_color"`
	RisingColor  string `json:"rising_color"`
	FallingColor string `json:"falling_color"`
	ShowLabels   *bool  `json:"show_labels"`
}

func (s *Server) handleProfileRender(args json.RawMessage) (interface{}, error) {
	var a profileRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, p, err := s.recompute(a.profileArgs, false)
	if err != nil {
		return nil, err
	}
	showLabels := true
	if a.ShowLabels != nil {
		showLabels = *a.ShowLabels
	}
	return imaging.RenderProfile(img, p, imaging.OverlayOptions{
		LineColor:    a.LineColor,
		RisingColor:  a.RisingColor,
		FallingColor: a.FallingColor,
		ShowLabels:   showLabels,
	})
}

type profileZoomArgs struct {
	segmentArgs
	Padding *int    `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleProfileZoom(args json.RawMessage) (interface{}, error) {
	var a profileZoomArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	padding := 10
	if a.Padding != nil {
		padding = *a.Padding
	}
	if a.Scale == 0 {
		a.Scale = 4.0
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, err
	}
	ep, _, err := s.endpoints(a.segmentArgs, false)
	if err != nil {
		return nil, err
	}
	if !ep.Complete() {
		return nil, errors.New("no segment selected")
	}
	return imaging.CropSegment(img, ep.A, ep.B, padding, a.Scale)
}

func (s *Server) handleImageMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, err
	}
	ep, _, err := s.endpoints(a, false)
	if err != nil {
		return nil, err
	}
	if !ep.Complete() {
		return nil, errors.New("no segment selected")
	}
	var cal *profile.Calibration
	if c, ok := s.calibrations.Active(); ok {
		cal = &c
	}
	return imaging.MeasureSegment(img, ep.A, ep.B, cal), nil
}

type measureBlobArgs struct {
	Path   string          `json:"path"`
	Points []profile.Point `json:"points"`
}

func (s *Server) handleImageMeasureBlob(args json.RawMessage) (interface{}, error) {
	var a measureBlobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) != 4 {
		return nil, fmt.Errorf("points: got %d, want 4", len(a.Points))
	}
	img, err := s.display(a.Path)
	if err != nil {
		return nil, err
	}
	for i, p := range a.Points {
		if !profile.InBounds(p, img.Bounds()) {
			return nil, fmt.Errorf("point %d %v is outside the %dx%d image", i+1, p, img.Bounds().Dx(), img.Bounds().Dy())
		}
	}
	var cal *profile.Calibration
	if c, ok := s.calibrations.Active(); ok {
		cal = &c
	}
	return profile.MeasureBlob(a.Points[0], a.Points[1], a.Points[2], a.Points[3], cal)
}

// === Calibration Handlers ===

type calibrationAddArgs struct {
	Name        string  `json:"name"`
	Microns     float64 `json:"microns"`
	PixelLength float64 `json:"pixel_length"`
	Path        string  `json:"path"`
}

func (s *Server) handleCalibrationAdd(args json.RawMessage) (interface{}, error) {
	var a calibrationAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.PixelLength == 0 {
		if a.Path == "" {
			return nil, errors.New("pixel_length or path with a selected segment is required")
		}
		ep := s.selector(a.Path).Endpoints()
		if !ep.Complete() {
			return nil, errors.New("no segment selected")
		}
		a.PixelLength = ep.A.Dist(ep.B)
	}
	cal, err := s.calibrations.Add(a.Name, a.PixelLength, a.Microns)
	if err != nil {
		return nil, err
	}
	s.logger.Info("calibration added", slog.String("name", cal.Name), slog.Float64("px_per_um", cal.PixelsPerMicron))
	return cal, nil
}

type calibrationSelectArgs struct {
	Name string `json:"name"`
}

func (s *Server) handleCalibrationSelect(args json.RawMessage) (interface{}, error) {
	var a calibrationSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.calibrations.Select(a.Name)
}

type calibrationList struct {
	Calibrations []profile.Calibration `json:"calibrations"`
	Active       string                `json:"active,omitempty"`
}

func (s *Server) handleCalibrationList(_ json.RawMessage) (interface{}, error) {
	list := &calibrationList{Calibrations: s.calibrations.List()}
	if cal, ok := s.calibrations.Active(); ok {
		list.Active = cal.Name
	}
	return list, nil
}

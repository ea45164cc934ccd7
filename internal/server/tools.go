package server

import "github.com/ironsheep/line-profile-mcp/internal/imaging"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// segmentProperties are the optional explicit endpoints accepted by the
// profile tools. When all four are omitted the image's selection session
// supplies the endpoints.
func segmentProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty,
		"x1":   map[string]interface{}{"type": "number", "description": "Endpoint A X (display coordinates). Overrides the session selection"},
		"y1":   map[string]interface{}{"type": "number", "description": "Endpoint A Y"},
		"x2":   map[string]interface{}{"type": "number", "description": "Endpoint B X"},
		"y2":   map[string]interface{}{"type": "number", "description": "Endpoint B Y"},
	}
}

// profileProperties extends segmentProperties with the analysis options.
func profileProperties() map[string]interface{} {
	props := segmentProperties()
	props["threshold"] = map[string]interface{}{
		"type":        "number",
		"description": "Edge threshold, must be positive. A change larger than this between consecutive samples is an edge. Default 10",
		"default":     10,
	}
	props["max_value"] = map[string]interface{}{
		"type":        "number",
		"description": "Upper clamp for sample scalars, in (0, 65535]. Defaults to the server setting (255)",
	}
	props["mode"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"edges", "swatch"},
		"description": "edges: classify transitions. swatch: colors and scalars only",
		"default":     "edges",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Images
		{
			Name:        "image_load",
			Description: "Load an image, fit it to the display box and start a selection session for it. Returns original and display dimensions; all profile coordinates are display coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the original width and height of an image file and its display size. Profile coordinates are in display space.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a display pixel, with the scalar a profile would derive from it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "image_generate_pattern",
			Description: "Write a synthetic test pattern PNG (step edge, gradient, bar target or checkerboard).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PNG to write",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"enum":        imaging.PatternKinds,
						"description": "Pattern to draw",
					},
					"width":  map[string]interface{}{"type": "integer", "description": "Width in pixels. Default 400", "default": 400},
					"height": map[string]interface{}{"type": "integer", "description": "Height in pixels. Default 200", "default": 200},
				},
				"required": []string{"path", "pattern"},
			},
		},

		// Selection
		{
			Name:        "profile_select_point",
			Description: "Feed a click to the image's selection session. Clicks alternate between endpoint A and endpoint B.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x":    map[string]interface{}{"type": "number", "description": "X (display coordinates)"},
					"y":    map[string]interface{}{"type": "number", "description": "Y (display coordinates)"},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "profile_reset",
			Description: "Clear both endpoints of the image's selection session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Profiles
		{
			Name:        "profile_compute",
			Description: "Sample the brightness profile between the endpoints and classify rising and falling edges. An incomplete or out-of-bounds segment returns valid=false.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": profileProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "profile_render",
			Description: "Render the profile over the image with a plot panel below, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					props := profileProperties()
					props["line_color"] = map[string]interface{}{"type": "string", "description": "Segment color in hex. Default #FFFF00"}
					props["rising_color"] = map[string]interface{}{"type": "string", "description": "Rising edge color. Default #00C000"}
					props["falling_color"] = map[string]interface{}{"type": "string", "description": "Falling edge color. Default #FF0000"}
					props["show_labels"] = map[string]interface{}{"type": "boolean", "description": "Draw endpoint labels and a summary. Default true", "default": true}
					return props
				}(),
				"required": []string{"path"},
			},
		},
		{
			Name:        "profile_zoom",
			Description: "Crop the area around the segment and magnify it with nearest-neighbour scaling so individual pixels stay visible.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					props := segmentProperties()
					props["padding"] = map[string]interface{}{"type": "integer", "description": "Pixels added around the segment. Default 10", "default": 10}
					props["scale"] = map[string]interface{}{"type": "number", "description": "Magnification. Default 4", "default": 4.0}
					return props
				}(),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_measure_distance",
			Description: "Measure a segment in pixels and, when a calibration is active, in micrometers.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": segmentProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_measure_blob",
			Description: "Measure an object along two crossing axes from four points. Points 1 and 2 span the first axis. Point 3 must lie between the perpendiculars of the first axis; point 4 is snapped so the second axis runs perpendicular to the first and must cross it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Exactly four points in display coordinates",
						"minItems":    4,
						"maxItems":    4,
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Calibrations
		{
			Name:        "calibration_add",
			Description: "Add a named calibration from a segment of known length. The first calibration added becomes active.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":         map[string]interface{}{"type": "string", "description": "Calibration name, e.g. the objective"},
					"microns":      map[string]interface{}{"type": "number", "description": "True length of the segment in micrometers"},
					"pixel_length": map[string]interface{}{"type": "number", "description": "Segment length in pixels. If omitted, the selected segment of path is used"},
					"path":         pathProperty,
				},
				"required": []string{"name", "microns"},
			},
		},
		{
			Name:        "calibration_select",
			Description: "Make a named calibration active.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string", "description": "Calibration name"},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "calibration_list",
			Description: "List calibrations and the active one.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

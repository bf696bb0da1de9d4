package layout

import "fmt"

// Config holds the fixed layout metrics. The zero value stands for
// DefaultConfig; a partially filled Config is taken literally.
type Config struct {
	StartY             int `koanf:"start_y" json:"start_y"`
	RowHeight          int `koanf:"row_height" json:"row_height"`
	BoxWidth           int `koanf:"box_width" json:"box_width"`
	InputX             int `koanf:"input_x" json:"input_x"`
	OutputX            int `koanf:"output_x" json:"output_x"`
	CanvasWidth        int `koanf:"canvas_width" json:"canvas_width"`
	BlockPadding       int `koanf:"block_padding" json:"block_padding"`
	BlockGap           int `koanf:"block_gap" json:"block_gap"`
	InputAnchorOffset  int `koanf:"input_anchor_offset" json:"input_anchor_offset"`
	OutputAnchorOffset int `koanf:"output_anchor_offset" json:"output_anchor_offset"`
	PanelMargin        int `koanf:"panel_margin" json:"panel_margin"`
	TrailingMargin     int `koanf:"trailing_margin" json:"trailing_margin"`
	RulePanelOffset    int `koanf:"rule_panel_offset" json:"rule_panel_offset"`
	ExamplePanelOffset int `koanf:"example_panel_offset" json:"example_panel_offset"`
}

// DefaultConfig returns the standard diagram metrics.
func DefaultConfig() Config {
	return Config{
		StartY:             60,
		RowHeight:          35,
		BoxWidth:           250,
		InputX:             50,
		OutputX:            700,
		CanvasWidth:        1700,
		BlockPadding:       40,
		BlockGap:           60,
		InputAnchorOffset:  120,
		OutputAnchorOffset: 20,
		PanelMargin:        300,
		TrailingMargin:     300,
		RulePanelOffset:    100,
		ExamplePanelOffset: 300,
	}
}

// InputAnchorX is the x coordinate of every input anchor.
func (c Config) InputAnchorX() int {
	return c.InputX + c.InputAnchorOffset
}

// OutputAnchorX is the x coordinate of every output anchor.
func (c Config) OutputAnchorX() int {
	return c.OutputX + c.OutputAnchorOffset
}

// Validate rejects metrics that would produce overlapping or inverted rows.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.RowHeight <= 0 {
		return fmt.Errorf("layout.row_height must be positive, got %d", c.RowHeight)
	}
	if c.BoxWidth <= 0 {
		return fmt.Errorf("layout.box_width must be positive, got %d", c.BoxWidth)
	}
	if c.OutputX <= c.InputX+c.BoxWidth {
		return fmt.Errorf("layout.output_x (%d) must be right of the input blocks (%d)", c.OutputX, c.InputX+c.BoxWidth)
	}
	return nil
}

// withDefaults maps the zero Config to DefaultConfig. Any other value is
// used as given, so a zero start_y or input_x is honored.
func (c Config) withDefaults() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	return c
}

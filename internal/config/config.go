package config

type Config struct {
	ProfilePath    string
	OutputVideo    string
	FramesDir      string
	TracePath      string
	Width          int
	Height         int
	PixelRatio     float64
	FPS            int
	Workers        int
	ForceMobile    bool
	VideoEncoder   string
	Quality        int
	ShowStats      bool
	CheckAlignment bool
	Assets         []string
	ContactURL     string
	ResizeAt       float64 // seconds into the intro, 0 disables
	ResizeWidth    int
	ResizeHeight   int
	BuildVersion   string
}

// RenderParams describes one preview frame handed to the rasterizer pool.
type RenderParams struct {
	Width, Height int
	PixelRatio    float64
	FrameIndex    int
	Elapsed       float64
}

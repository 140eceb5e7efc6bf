package lib

// VirtualScreen is the 256x240 RGB framebuffer the PPU draws into. Buffer
// is laid out row-major, 3 bytes (R,G,B) per pixel, matching what an
// ebiten.Image.WritePixels-style blit or a terminal ANSI renderer expects.
type VirtualScreen struct {
    Width  int
    Height int
    Buffer []byte
}

func MakeVirtualScreen(width int, height int) VirtualScreen {
    return VirtualScreen{
        Width:  width,
        Height: height,
        Buffer: make([]byte, width*height*3),
    }
}

func (screen *VirtualScreen) Set(x int, y int, color RGB) {
    if x < 0 || y < 0 || x >= screen.Width || y >= screen.Height {
        return
    }
    offset := (y*screen.Width + x) * 3
    screen.Buffer[offset] = color.Red
    screen.Buffer[offset+1] = color.Green
    screen.Buffer[offset+2] = color.Blue
}

// VideoSink receives a completed frame. Hosts implement this to blit the
// framebuffer however they render (an ebiten.Image, an ANSI grid, ...).
type VideoSink interface {
    RenderFrame(screen *VirtualScreen)
}

// AudioSink receives PCM samples as they're produced. Hosts implement this
// over whatever pull- or push-based audio API they use.
type AudioSink interface {
    PushSamples(samples []float32)
}

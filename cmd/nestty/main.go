package main

import (
    "flag"
    "fmt"
    "os"
    "sync"
    "time"

    nes "github.com/kazzmir/nes/lib"

    "github.com/fatih/color"
    "github.com/jroimartin/gocui"
)

// nestty is the headless terminal host: it proves the lib.VideoSink /
// lib.AudioSink / controller interfaces are front-end agnostic by
// driving the same Machine cmd/nesgo drives, but rendering the
// framebuffer as a downsampled ANSI-art grid and the register/cycle
// readout as a status panel instead of an ebiten window.

// asciiRamp is the brightness-to-glyph ramp the video panel walks,
// darkest to brightest.
const asciiRamp = " .:-=+*#%@"

const (
    gridColumns = 64
    gridRows    = 30
)

type host struct {
    machine *nes.Machine
    gui     *gocui.Gui
    frames  uint64
    started time.Time
    quit    bool

    // buttonsLock guards buttons: keybinding callbacks run on gocui's
    // main loop goroutine while tick runs on a dedicated 60Hz ticker
    // goroutine.
    buttonsLock sync.Mutex
    buttons     nes.ButtonState
}

var keyButtons = map[gocui.Key]nes.Button{
    gocui.KeyArrowUp:    nes.ButtonUp,
    gocui.KeyArrowDown:  nes.ButtonDown,
    gocui.KeyArrowLeft:  nes.ButtonLeft,
    gocui.KeyArrowRight: nes.ButtonRight,
}

// Terminals deliver key-down events only, with no matching key-up, so
// each tap toggles the button rather than holding it - the same
// tradeoff any readline-style terminal front end for a game console
// has to make.
func (h *host) toggle(button nes.Button) func(*gocui.Gui, *gocui.View) error {
    return func(*gocui.Gui, *gocui.View) error {
        h.buttonsLock.Lock()
        h.buttons[button] = !h.buttons[button]
        h.buttonsLock.Unlock()
        return nil
    }
}

func (h *host) quitNow(*gocui.Gui, *gocui.View) error {
    return gocui.ErrQuit
}

func (h *host) layout(g *gocui.Gui) error {
    maxX, maxY := g.Size()

    screenView, err := g.SetView("screen", 0, 0, maxX-1, maxY-5)
    if err != nil {
        if err != gocui.ErrUnknownView {
            return err
        }
        screenView.Title = "screen"
        screenView.Wrap = false
    }

    statusView, err := g.SetView("status", 0, maxY-4, maxX-1, maxY-1)
    if err != nil {
        if err != gocui.ErrUnknownView {
            return err
        }
        statusView.Title = "status"
    }

    return nil
}

func brightness(r, g, b byte) float64 {
    return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// ansiColor picks the nearest basic ANSI foreground for an averaged
// RGB triple - gocui panels are plain terminal cells, not true color,
// so this is a coarse 8-color bucket rather than a palette search.
func ansiColor(r, g, b byte) *color.Color {
    switch {
    case r > g && r > b:
        return color.New(color.FgRed)
    case g > r && g > b:
        return color.New(color.FgGreen)
    case b > r && b > g:
        return color.New(color.FgBlue)
    case r > 180 && g > 180 && b < 100:
        return color.New(color.FgYellow)
    case r > 180 && g < 100 && b > 180:
        return color.New(color.FgMagenta)
    case g > 180 && b > 180 && r < 100:
        return color.New(color.FgCyan)
    default:
        return color.New(color.FgWhite)
    }
}

// renderScreen downsamples the machine's 256x240 RGB framebuffer into
// a gridColumns x gridRows block-average grid and writes it as
// colorized glyphs from asciiRamp.
func renderScreen(view *gocui.View, screen *nes.VirtualScreen) {
    view.Clear()

    blockWidth := screen.Width / gridColumns
    blockHeight := screen.Height / gridRows
    if blockWidth < 1 {
        blockWidth = 1
    }
    if blockHeight < 1 {
        blockHeight = 1
    }

    for row := 0; row < gridRows; row++ {
        for col := 0; col < gridColumns; col++ {
            var sumR, sumG, sumB, count int
            for y := row * blockHeight; y < (row+1)*blockHeight && y < screen.Height; y++ {
                for x := col * blockWidth; x < (col+1)*blockWidth && x < screen.Width; x++ {
                    offset := (y*screen.Width + x) * 3
                    sumR += int(screen.Buffer[offset])
                    sumG += int(screen.Buffer[offset+1])
                    sumB += int(screen.Buffer[offset+2])
                    count++
                }
            }
            if count == 0 {
                count = 1
            }
            r := byte(sumR / count)
            g := byte(sumG / count)
            b := byte(sumB / count)

            level := int(brightness(r, g, b) / 256.0 * float64(len(asciiRamp)))
            if level >= len(asciiRamp) {
                level = len(asciiRamp) - 1
            }
            glyph := string(asciiRamp[level])
            fmt.Fprint(view, ansiColor(r, g, b).Sprint(glyph))
        }
        fmt.Fprintln(view)
    }
}

func renderStatus(view *gocui.View, frames uint64, elapsed float64, cpuStatus string) {
    view.Clear()
    fps := 0.0
    if elapsed > 0 {
        fps = float64(frames) / elapsed
    }
    fmt.Fprintf(view, "%v\n", color.New(color.FgGreen).Sprintf("frame %d  fps %.1f", frames, fps))
    fmt.Fprintf(view, "%v\n", cpuStatus)
}

func (h *host) tick() error {
    h.buttonsLock.Lock()
    buttons := h.buttons
    h.buttonsLock.Unlock()

    h.machine.Pad1.SetButtons(buttons)
    err := h.machine.RunFrame()
    if err != nil {
        return err
    }
    h.frames++
    return nil
}

func (h *host) run() error {
    g, err := gocui.NewGui(gocui.OutputNormal)
    if err != nil {
        return err
    }
    defer g.Close()
    h.gui = g

    g.SetManagerFunc(h.layout)
    g.Cursor = false

    err = g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, h.quitNow)
    if err != nil {
        return err
    }
    err = g.SetKeybinding("", gocui.KeyEsc, gocui.ModNone, h.quitNow)
    if err != nil {
        return err
    }
    for key, button := range keyButtons {
        err = g.SetKeybinding("", key, gocui.ModNone, h.toggle(button))
        if err != nil {
            return err
        }
    }
    err = g.SetKeybinding("", 'z', gocui.ModNone, h.toggle(nes.ButtonA))
    if err != nil {
        return err
    }
    err = g.SetKeybinding("", 'x', gocui.ModNone, h.toggle(nes.ButtonB))
    if err != nil {
        return err
    }
    err = g.SetKeybinding("", gocui.KeyEnter, gocui.ModNone, h.toggle(nes.ButtonStart))
    if err != nil {
        return err
    }
    err = g.SetKeybinding("", gocui.KeySpace, gocui.ModNone, h.toggle(nes.ButtonSelect))
    if err != nil {
        return err
    }

    h.started = time.Now()

    go func() {
        ticker := time.NewTicker(time.Second / 60)
        defer ticker.Stop()
        for range ticker.C {
            tickErr := h.tick()
            // Snapshot what the render closure needs here, on the
            // emulation goroutine, so the gocui main-loop goroutine
            // g.Update runs on never touches *Machine concurrently.
            screenCopy := h.machine.Screen
            screenCopy.Buffer = append([]byte(nil), h.machine.Screen.Buffer...)
            status := h.machine.CPU.String()
            frames := h.frames
            elapsed := time.Since(h.started).Seconds()
            g.Update(func(g *gocui.Gui) error {
                if tickErr != nil {
                    return tickErr
                }
                screenView, viewErr := g.View("screen")
                if viewErr == nil {
                    renderScreen(screenView, &screenCopy)
                }
                statusView, viewErr := g.View("status")
                if viewErr == nil {
                    renderStatus(statusView, frames, elapsed, status)
                }
                return nil
            })
            if tickErr != nil {
                return
            }
        }
    }()

    err = g.MainLoop()
    if err != nil && err != gocui.ErrQuit {
        return err
    }
    return nil
}

func run() int {
    strict := flag.Bool("strict", false, "halt on undocumented opcodes and out-of-range mapper writes")
    sampleRate := flag.Int("sample-rate", 44100, "audio sample rate (accepted for symmetry with cmd/nesgo, not played back)")
    flag.Parse()

    if flag.NArg() < 1 {
        fmt.Fprintf(os.Stderr, "usage: %v <path-to-rom>\n", os.Args[0])
        return 1
    }

    romPath := flag.Arg(0)

    rom, err := nes.ParseNesFile(romPath, false)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    config, err := nes.MakeConfig(romPath,
        nes.WithStrict(*strict),
        nes.WithSampleRate(*sampleRate))
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    machine, err := nes.MakeMachine(rom, config)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    h := &host{machine: machine}
    err = h.run()
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 2
    }
    return 0
}

func main() {
    os.Exit(run())
}

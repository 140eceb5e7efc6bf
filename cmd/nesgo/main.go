package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    nes "github.com/kazzmir/nes/lib"

    "github.com/hajimehoshi/ebiten/v2"
    audiolib "github.com/hajimehoshi/ebiten/v2/audio"
    "github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game is the ebiten.Game implementation: the video sink (Draw blits the
// machine's framebuffer), the input source (Update polls the keyboard
// into the first controller), and the pacing loop (ebiten's own fixed
// tick stands in for the ~16.639ms frame cadence).
type Game struct {
    machine  *nes.Machine
    screen   *ebiten.Image
    savePath string
    quit     bool
}

func (game *Game) Update() error {
    if game.quit {
        return ebiten.Termination
    }

    game.machine.Pad1.SetButtons(nes.ButtonState{
        nes.ButtonA:      ebiten.IsKeyPressed(ebiten.KeyZ),
        nes.ButtonB:      ebiten.IsKeyPressed(ebiten.KeyX),
        nes.ButtonSelect: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
        nes.ButtonStart:  ebiten.IsKeyPressed(ebiten.KeyEnter),
        nes.ButtonUp:     ebiten.IsKeyPressed(ebiten.KeyUp),
        nes.ButtonDown:   ebiten.IsKeyPressed(ebiten.KeyDown),
        nes.ButtonLeft:   ebiten.IsKeyPressed(ebiten.KeyLeft),
        nes.ButtonRight:  ebiten.IsKeyPressed(ebiten.KeyRight),
    })

    if ebiten.IsKeyPressed(ebiten.KeyEscape) {
        game.quit = true
        return nil
    }

    if inpututil.IsKeyJustPressed(ebiten.KeyS) {
        err := game.machine.SaveToFile(game.savePath)
        if err != nil {
            log.Printf("Warning: could not save state: %v", err)
        }
    }

    if inpututil.IsKeyJustPressed(ebiten.KeyL) {
        err := game.machine.LoadFromFile(game.savePath)
        if err != nil {
            log.Printf("Warning: could not load state: %v", err)
        }
    }

    err := game.machine.RunFrame()
    if err != nil {
        log.Printf("Error: %v", err)
        game.quit = true
    }

    return nil
}

func (game *Game) Draw(screen *ebiten.Image) {
    game.screen.WritePixels(rgbToRGBA(game.machine.Screen.Buffer))
    options := &ebiten.DrawImageOptions{}
    screen.DrawImage(game.screen, options)
}

func (game *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
    return 256, 240
}

// rgbToRGBA expands the machine's packed RGB framebuffer into the RGBA
// bytes ebiten.Image.WritePixels requires.
func rgbToRGBA(rgb []byte) []byte {
    out := make([]byte, len(rgb)/3*4)
    for i, j := 0, 0; i < len(rgb); i, j = i+3, j+4 {
        out[j] = rgb[i]
        out[j+1] = rgb[i+1]
        out[j+2] = rgb[i+2]
        out[j+3] = 0xff
    }
    return out
}

func defaultSavePath(romPath string) string {
    stem := strings.TrimSuffix(romPath, ".nes")
    return stem + ".sav"
}

func run() int {
    strict := flag.Bool("strict", false, "halt on undocumented opcodes and out-of-range mapper writes")
    scale := flag.Int("scale", 2, "window scale factor")
    savePath := flag.String("save-path", "", "save state path (default: <rom-stem>.sav)")
    sampleRate := flag.Int("sample-rate", 44100, "audio sample rate")
    cpuDebug := flag.Uint("debug-cpu", 0, "CPU trace verbosity")
    ppuDebug := flag.Uint("debug-ppu", 0, "PPU trace verbosity")
    apuDebug := flag.Uint("debug-apu", 0, "APU trace verbosity")
    flag.Parse()

    if flag.NArg() < 1 {
        fmt.Fprintf(os.Stderr, "usage: %v <path-to-rom>\n", os.Args[0])
        return 1
    }

    romPath := flag.Arg(0)

    rom, err := nes.ParseNesFile(romPath, *cpuDebug > 0)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    config, err := nes.MakeConfig(romPath,
        nes.WithStrict(*strict),
        nes.WithSampleRate(*sampleRate),
        nes.WithWindowScale(*scale),
        nes.WithDebug(*cpuDebug, *ppuDebug, *apuDebug))
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    if *savePath == "" {
        *savePath = defaultSavePath(romPath)
    }

    machine, err := nes.MakeMachine(rom, config)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 1
    }

    ring := newSampleRingBuffer(*sampleRate)
    machine.Audio = ring

    audioContext := audiolib.NewContext(*sampleRate)
    player, err := audioContext.NewPlayerF32(ring)
    if err != nil {
        fmt.Fprintf(os.Stderr, "could not start audio: %v\n", err)
        return 2
    }
    player.SetBufferSize(50 * time.Millisecond)
    player.Play()
    defer player.Pause()

    game := &Game{
        machine:  machine,
        screen:   ebiten.NewImage(256, 240),
        savePath: *savePath,
    }

    ebiten.SetWindowTitle("nesgo")
    ebiten.SetWindowSize(256*(*scale), 240*(*scale))
    ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

    err = ebiten.RunGame(game)
    if err != nil {
        fmt.Fprintf(os.Stderr, "%v\n", err)
        return 2
    }

    return 0
}

func main() {
    os.Exit(run())
}

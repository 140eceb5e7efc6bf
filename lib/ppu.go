package lib

import "encoding/json"

// PPU models the 2C02 picture generator: a 341x262 dot/scanline state
// machine driving a background tile pipeline and an 8-sprite-per-scanline
// evaluator, both feeding a shared pixel multiplexer. It owns its own
// 2KB of nametable RAM and 32 bytes of palette RAM; pattern data always
// comes from the cartridge's CHR space via the Mapper passed into each
// call, never from a stored pointer.
type PPU struct {
    Ctrl   byte // $2000
    Mask   byte // $2001
    status byte // $2002 (top 3 bits only: vblank, sprite0, overflow)
    OamAddr byte // $2003

    v uint16 // current VRAM address (loopy v)
    t uint16 // temporary VRAM address (loopy t)
    x byte   // fine X scroll, 3 bits
    w bool   // write toggle, shared by $2005/$2006

    nametables [2][1024]byte
    paletteRAM [32]byte
    oam        [256]byte
    secondary  [32]byte
    spriteCount int

    readBuffer byte // $2007 buffered read

    scanline int
    cycle    int
    oddFrame bool

    bgNextTileID   byte
    bgNextAttr     byte
    bgNextLSB      byte
    bgNextMSB      byte
    bgShiftPatLo   uint16
    bgShiftPatHi   uint16
    bgShiftAttrLo  uint16
    bgShiftAttrHi  uint16

    spritePatLo   [8]byte
    spritePatHi   [8]byte
    spriteAttr    [8]byte
    spriteX       [8]byte
    spriteIsZero  [8]bool
    zeroHitPossible  bool
    zeroBeingRendered bool

    frameComplete bool

    Cycles uint64
}

func MakePPU() PPU {
    return PPU{scanline: -1}
}

const (
    loopyCoarseX   = 0x001f
    loopyCoarseY   = 0x03e0
    loopyNametable = 0x0c00
    loopyFineY     = 0x7000
)

func (p *PPU) renderingEnabled() bool { return p.Mask&0x18 != 0 }

// physicalNametable resolves one of the four logical 1KB nametable slots
// onto one of the console's two physical 1KB tables according to the
// cartridge's mirroring mode.
func physicalNametable(logical int, mirroring Mirroring) int {
    switch mirroring {
    case MirrorVertical:
        return logical & 1
    case MirrorSingleScreenLow:
        return 0
    case MirrorSingleScreenHigh:
        return 1
    case MirrorFourScreen:
        // no extra nametable RAM modeled; fall back to vertical mirroring.
        return logical & 1
    default: // MirrorHorizontal
        return (logical >> 1) & 1
    }
}

func (p *PPU) readVRAM(address uint16, mapper Mapper) byte {
    address &= 0x3fff

    switch {
    case address < 0x2000:
        return mapper.PPURead(address)
    case address < 0x3f00:
        offset := (address - 0x2000) & 0x0fff
        table := int(offset>>10) & 0x3
        physical := physicalNametable(table, mapper.Mirroring())
        return p.nametables[physical][offset&0x3ff]
    default:
        return p.readPalette(address)
    }
}

func (p *PPU) writeVRAM(address uint16, value byte, mapper Mapper) {
    address &= 0x3fff

    switch {
    case address < 0x2000:
        mapper.PPUWrite(address, value)
    case address < 0x3f00:
        offset := (address - 0x2000) & 0x0fff
        table := int(offset>>10) & 0x3
        physical := physicalNametable(table, mapper.Mirroring())
        p.nametables[physical][offset&0x3ff] = value
    default:
        p.writePalette(address, value)
    }
}

func palettelIndex(address uint16) uint16 {
    index := address & 0x1f
    if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1c {
        index -= 0x10
    }
    return index
}

func (p *PPU) readPalette(address uint16) byte {
    return p.paletteRAM[palettelIndex(address)]
}

func (p *PPU) writePalette(address uint16, value byte) {
    p.paletteRAM[palettelIndex(address)] = value & 0x3f
}

// ReadRegister handles a CPU read of $2000-$2007 (the address is already
// reduced mod 8 by the caller).
func (p *PPU) ReadRegister(register uint16, mapper Mapper) byte {
    switch register {
    case 2: // PPUSTATUS
        value := p.status
        p.status &^= 0x80
        p.w = false
        return value
    case 4: // OAMDATA
        if p.renderingEnabled() && p.scanline >= 0 && p.scanline < 240 && p.cycle >= 1 && p.cycle <= 64 {
            return 0xff
        }
        return p.oam[p.OamAddr]
    case 7: // PPUDATA
        value := p.readBuffer
        p.readBuffer = p.readVRAM(p.v, mapper)
        if p.v >= 0x3f00 {
            value = p.readBuffer
        }
        p.incrementVRAMAddress()
        return value
    default:
        return 0
    }
}

// WriteRegister handles a CPU write of $2000-$2007. It returns true on the
// one case a write can assert NMI on its own: turning on PPUCTRL's NMI
// generation bit while the vblank flag is already set edge-triggers an
// immediate NMI rather than waiting for the next vblank.
func (p *PPU) WriteRegister(register uint16, value byte, mapper Mapper) bool {
    switch register {
    case 0: // PPUCTRL
        wasEnabled := p.Ctrl&0x80 != 0
        p.Ctrl = value
        p.t = (p.t &^ loopyNametable) | (uint16(value&0x3) << 10)
        if !wasEnabled && p.Ctrl&0x80 != 0 && p.status&0x80 != 0 {
            return true
        }
    case 1: // PPUMASK
        p.Mask = value
    case 3: // OAMADDR
        p.OamAddr = value
    case 4: // OAMDATA
        p.oam[p.OamAddr] = value
        p.OamAddr++
    case 5: // PPUSCROLL
        if !p.w {
            p.x = value & 0x7
            p.t = (p.t &^ loopyCoarseX) | uint16(value>>3)
        } else {
            p.t = (p.t &^ loopyFineY) | (uint16(value&0x7) << 12)
            p.t = (p.t &^ loopyCoarseY) | (uint16(value&0xf8) << 2)
        }
        p.w = !p.w
    case 6: // PPUADDR
        if !p.w {
            p.t = (p.t & 0x00ff) | (uint16(value&0x3f) << 8)
        } else {
            p.t = (p.t & 0xff00) | uint16(value)
            p.v = p.t
        }
        p.w = !p.w
    case 7: // PPUDATA
        p.writeVRAM(p.v, value, mapper)
        p.incrementVRAMAddress()
    }
    return false
}

func (p *PPU) incrementVRAMAddress() {
    if p.Ctrl&0x04 != 0 {
        p.v += 32
    } else {
        p.v += 1
    }
}

// WriteOAMByte is used by OAM DMA ($4014) to load one byte at a time.
func (p *PPU) WriteOAMByte(value byte) {
    p.oam[p.OamAddr] = value
    p.OamAddr++
}

func (p *PPU) incrementScrollX() {
    if !p.renderingEnabled() {
        return
    }
    if p.v&loopyCoarseX == 31 {
        p.v &^= loopyCoarseX
        p.v ^= 0x0400
    } else {
        p.v++
    }
}

func (p *PPU) incrementScrollY() {
    if !p.renderingEnabled() {
        return
    }
    if p.v&loopyFineY != loopyFineY {
        p.v += 0x1000
        return
    }
    p.v &^= loopyFineY
    coarseY := (p.v & loopyCoarseY) >> 5
    switch coarseY {
    case 29:
        coarseY = 0
        p.v ^= 0x0800
    case 31:
        coarseY = 0
    default:
        coarseY++
    }
    p.v = (p.v &^ loopyCoarseY) | (coarseY << 5)
}

func (p *PPU) transferAddressX() {
    if !p.renderingEnabled() {
        return
    }
    p.v = (p.v &^ (loopyCoarseX | 0x0400)) | (p.t & (loopyCoarseX | 0x0400))
}

func (p *PPU) transferAddressY() {
    if !p.renderingEnabled() {
        return
    }
    p.v = (p.v &^ (loopyFineY | loopyCoarseY | 0x0800)) | (p.t & (loopyFineY | loopyCoarseY | 0x0800))
}

func (p *PPU) loadBackgroundShifters() {
    p.bgShiftPatLo = (p.bgShiftPatLo &^ 0x00ff) | uint16(p.bgNextLSB)
    p.bgShiftPatHi = (p.bgShiftPatHi &^ 0x00ff) | uint16(p.bgNextMSB)

    var lo, hi uint16
    if p.bgNextAttr&0x1 != 0 {
        lo = 0xff
    }
    if p.bgNextAttr&0x2 != 0 {
        hi = 0xff
    }
    p.bgShiftAttrLo = (p.bgShiftAttrLo &^ 0x00ff) | lo
    p.bgShiftAttrHi = (p.bgShiftAttrHi &^ 0x00ff) | hi
}

func (p *PPU) updateShifters() {
    if p.Mask&0x08 != 0 {
        p.bgShiftPatLo <<= 1
        p.bgShiftPatHi <<= 1
        p.bgShiftAttrLo <<= 1
        p.bgShiftAttrHi <<= 1
    }

    if p.Mask&0x10 != 0 && p.cycle >= 1 && p.cycle <= 256 {
        for i := 0; i < p.spriteCount; i++ {
            if p.spriteX[i] > 0 {
                p.spriteX[i]--
            } else {
                p.spritePatLo[i] <<= 1
                p.spritePatHi[i] <<= 1
            }
        }
    }
}

func (p *PPU) fetchBackgroundByte(mapper Mapper, step int) {
    switch step {
    case 0:
        p.bgNextTileID = p.readVRAM(0x2000|(p.v&0x0fff), mapper)
    case 2:
        address := 0x23c0 | (p.v & 0x0c00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
        attr := p.readVRAM(address, mapper)
        if p.v&loopyCoarseY&0x02 != 0 {
            attr >>= 4
        }
        if p.v&loopyCoarseX&0x02 != 0 {
            attr >>= 2
        }
        p.bgNextAttr = attr & 0x3
    case 4:
        plane := uint16(0)
        if p.Ctrl&0x10 != 0 {
            plane = 0x1000
        }
        address := plane + uint16(p.bgNextTileID)*16 + ((p.v & loopyFineY) >> 12)
        p.bgNextLSB = p.readVRAM(address, mapper)
    case 6:
        plane := uint16(0)
        if p.Ctrl&0x10 != 0 {
            plane = 0x1000
        }
        address := plane + uint16(p.bgNextTileID)*16 + ((p.v & loopyFineY) >> 12) + 8
        p.bgNextMSB = p.readVRAM(address, mapper)
    }
}

func (p *PPU) spriteHeight() int {
    if p.Ctrl&0x20 != 0 {
        return 16
    }
    return 8
}

// evaluateSprites runs once per visible scanline (the real chip spreads
// this across dots 65-256, but collapsing it to one pass at the start of
// the scanline is observationally equivalent for any sprite evaluation
// that doesn't itself depend on $2004 reads mid-scanline).
func (p *PPU) evaluateSprites() {
    p.spriteCount = 0
    p.zeroHitPossible = false

    height := p.spriteHeight()

    for n := 0; n < 64 && p.spriteCount < 9; n++ {
        spriteY := int(p.oam[n*4])
        row := p.scanline - spriteY
        if row < 0 || row >= height {
            continue
        }

        if p.spriteCount < 8 {
            copy(p.secondary[p.spriteCount*4:p.spriteCount*4+4], p.oam[n*4:n*4+4])
            if n == 0 {
                p.zeroHitPossible = true
                p.spriteIsZero[p.spriteCount] = true
            } else {
                p.spriteIsZero[p.spriteCount] = false
            }
        }
        p.spriteCount++
    }

    if p.spriteCount > 8 {
        p.status |= 0x20
        p.spriteCount = 8
    }
}

func (p *PPU) loadSpritePatterns(mapper Mapper) {
    height := p.spriteHeight()

    for i := 0; i < p.spriteCount; i++ {
        y := p.secondary[i*4]
        tile := p.secondary[i*4+1]
        attr := p.secondary[i*4+2]
        x := p.secondary[i*4+3]

        flipY := attr&0x80 != 0
        flipX := attr&0x40 != 0

        row := p.scanline - int(y)
        if flipY {
            row = height - 1 - row
        }

        var address uint16
        if height == 16 {
            table := uint16(tile&0x1) * 0x1000
            cell := uint16(tile &^ 0x1)
            if row >= 8 {
                cell++
                row -= 8
            }
            address = table + cell*16 + uint16(row)
        } else {
            table := uint16(0)
            if p.Ctrl&0x08 != 0 {
                table = 0x1000
            }
            address = table + uint16(tile)*16 + uint16(row)
        }

        lo := p.readVRAM(address, mapper)
        hi := p.readVRAM(address+8, mapper)

        if flipX {
            lo = reverseBits(lo)
            hi = reverseBits(hi)
        }

        p.spritePatLo[i] = lo
        p.spritePatHi[i] = hi
        p.spriteAttr[i] = attr
        p.spriteX[i] = x
    }
}

func reverseBits(b byte) byte {
    var out byte
    for i := 0; i < 8; i++ {
        out <<= 1
        out |= b & 1
        b >>= 1
    }
    return out
}

func (p *PPU) backgroundPixel() (byte, byte) {
    if p.Mask&0x08 == 0 {
        return 0, 0
    }
    mux := uint16(0x8000) >> p.x
    p0 := byte(0)
    if p.bgShiftPatLo&mux != 0 {
        p0 = 1
    }
    p1 := byte(0)
    if p.bgShiftPatHi&mux != 0 {
        p1 = 1
    }
    pixel := p0 | (p1 << 1)

    a0 := byte(0)
    if p.bgShiftAttrLo&mux != 0 {
        a0 = 1
    }
    a1 := byte(0)
    if p.bgShiftAttrHi&mux != 0 {
        a1 = 1
    }
    palette := a0 | (a1 << 1)
    return pixel, palette
}

func (p *PPU) spritePixel() (byte, byte, bool, bool) {
    p.zeroBeingRendered = false
    if p.Mask&0x10 == 0 {
        return 0, 0, false, false
    }

    for i := 0; i < p.spriteCount; i++ {
        if p.spriteX[i] != 0 {
            continue
        }
        p0 := byte(0)
        if p.spritePatLo[i]&0x80 != 0 {
            p0 = 1
        }
        p1 := byte(0)
        if p.spritePatHi[i]&0x80 != 0 {
            p1 = 1
        }
        pixel := p0 | (p1 << 1)
        if pixel == 0 {
            continue
        }

        if p.spriteIsZero[i] {
            p.zeroBeingRendered = true
        }

        palette := (p.spriteAttr[i] & 0x3) + 4
        front := p.spriteAttr[i]&0x20 == 0
        return pixel, palette, front, true
    }
    return 0, 0, false, false
}

// Step advances the PPU by one dot (1/3 of a CPU cycle on NTSC), optionally
// writing one pixel into screen. It returns true exactly on the dot the
// NMI line should be asserted to the CPU.
func (p *PPU) Step(mapper Mapper, screen *VirtualScreen) bool {
    p.Cycles++
    nmi := false

    visible := p.scanline >= 0 && p.scanline < 240
    prerender := p.scanline == -1

    if visible || prerender {
        if p.cycle == 1 && visible {
            // secondary OAM is conceptually cleared through dot 64; reads of
            // $2004 in that window return 0xff, handled in ReadRegister.
        }

        if p.cycle >= 2 && p.cycle <= 257 || p.cycle >= 321 && p.cycle <= 337 {
            p.updateShifters()
            switch (p.cycle - 1) % 8 {
            case 0:
                p.loadBackgroundShifters()
                p.fetchBackgroundByte(mapper, 0)
            case 2:
                p.fetchBackgroundByte(mapper, 2)
            case 4:
                p.fetchBackgroundByte(mapper, 4)
            case 6:
                p.fetchBackgroundByte(mapper, 6)
            case 7:
                p.incrementScrollX()
            }
        }

        if p.cycle == 256 {
            p.incrementScrollY()
        }
        if p.cycle == 257 {
            p.transferAddressX()
            if visible {
                p.evaluateSprites()
                p.loadSpritePatterns(mapper)
            }
        }
        if prerender && p.cycle >= 280 && p.cycle <= 304 {
            p.transferAddressY()
        }
    }

    if visible && p.cycle >= 1 && p.cycle <= 256 {
        bgPixel, bgPalette := p.backgroundPixel()
        spPixel, spPalette, spFront, spActive := p.spritePixel()

        pixel := bgPixel
        palette := bgPalette

        if spActive && spPixel != 0 {
            if bgPixel == 0 || spFront {
                pixel = spPixel
                palette = spPalette
            }
        }

        if bgPixel != 0 && spActive && spPixel != 0 && p.zeroHitPossible && p.zeroBeingRendered {
            if p.Mask&0x18 == 0x18 {
                if p.cycle != 256 && !(p.cycle < 9 && (p.Mask&0x06 == 0)) {
                    p.status |= 0x40
                }
            }
        }

        var index byte
        if pixel == 0 {
            index = p.readPalette(0x3f00)
        } else {
            index = p.readPalette(0x3f00 + uint16(palette)*4 + uint16(pixel))
        }
        screen.Set(p.cycle-1, p.scanline, NTSCPalette[index&0x3f])
    }

    if p.scanline == 241 && p.cycle == 1 {
        p.status |= 0x80
        if p.Ctrl&0x80 != 0 {
            nmi = true
        }
    }

    if prerender && p.cycle == 1 {
        p.status &^= 0x80
        p.status &^= 0x40
        p.status &^= 0x20
    }

    p.cycle++
    if p.cycle >= 341 {
        p.cycle = 0
        p.scanline++
        if p.scanline >= 261 {
            p.scanline = -1
            p.oddFrame = !p.oddFrame
            p.frameComplete = true
        }
    }

    return nmi
}

// FrameComplete reports and clears the end-of-frame flag.
func (p *PPU) FrameComplete() bool {
    done := p.frameComplete
    p.frameComplete = false
    return done
}

// ppuSnapshot mirrors every PPU field, exported, purely so save states can
// reach the loopy registers and pipeline latches that stay unexported for
// everyone else.
type ppuSnapshot struct {
    Ctrl, Mask, Status, OamAddr byte
    V, T                        uint16
    X                           byte
    W                           bool
    Nametables                  [2][1024]byte
    PaletteRAM                  [32]byte
    OAM                         [256]byte
    Secondary                   [32]byte
    SpriteCount                 int
    ReadBuffer                  byte
    Scanline, Cycle             int
    OddFrame                    bool
    BgNextTileID                byte
    BgNextAttr                  byte
    BgNextLSB                   byte
    BgNextMSB                   byte
    BgShiftPatLo                uint16
    BgShiftPatHi                uint16
    BgShiftAttrLo               uint16
    BgShiftAttrHi               uint16
    SpritePatLo                 [8]byte
    SpritePatHi                 [8]byte
    SpriteAttr                  [8]byte
    SpriteX                     [8]byte
    SpriteIsZero                [8]bool
    ZeroHitPossible             bool
    ZeroBeingRendered           bool
    FrameComplete               bool
    Cycles                      uint64
}

func (p *PPU) MarshalJSON() ([]byte, error) {
    return json.Marshal(ppuSnapshot{
        Ctrl: p.Ctrl, Mask: p.Mask, Status: p.status, OamAddr: p.OamAddr,
        V: p.v, T: p.t, X: p.x, W: p.w,
        Nametables: p.nametables, PaletteRAM: p.paletteRAM, OAM: p.oam, Secondary: p.secondary,
        SpriteCount: p.spriteCount, ReadBuffer: p.readBuffer,
        Scanline: p.scanline, Cycle: p.cycle, OddFrame: p.oddFrame,
        BgNextTileID: p.bgNextTileID, BgNextAttr: p.bgNextAttr, BgNextLSB: p.bgNextLSB, BgNextMSB: p.bgNextMSB,
        BgShiftPatLo: p.bgShiftPatLo, BgShiftPatHi: p.bgShiftPatHi,
        BgShiftAttrLo: p.bgShiftAttrLo, BgShiftAttrHi: p.bgShiftAttrHi,
        SpritePatLo: p.spritePatLo, SpritePatHi: p.spritePatHi, SpriteAttr: p.spriteAttr, SpriteX: p.spriteX,
        SpriteIsZero: p.spriteIsZero, ZeroHitPossible: p.zeroHitPossible, ZeroBeingRendered: p.zeroBeingRendered,
        FrameComplete: p.frameComplete, Cycles: p.Cycles,
    })
}

func (p *PPU) UnmarshalJSON(data []byte) error {
    var snapshot ppuSnapshot
    err := json.Unmarshal(data, &snapshot)
    if err != nil {
        return err
    }

    *p = PPU{
        Ctrl: snapshot.Ctrl, Mask: snapshot.Mask, status: snapshot.Status, OamAddr: snapshot.OamAddr,
        v: snapshot.V, t: snapshot.T, x: snapshot.X, w: snapshot.W,
        nametables: snapshot.Nametables, paletteRAM: snapshot.PaletteRAM, oam: snapshot.OAM, secondary: snapshot.Secondary,
        spriteCount: snapshot.SpriteCount, readBuffer: snapshot.ReadBuffer,
        scanline: snapshot.Scanline, cycle: snapshot.Cycle, oddFrame: snapshot.OddFrame,
        bgNextTileID: snapshot.BgNextTileID, bgNextAttr: snapshot.BgNextAttr,
        bgNextLSB: snapshot.BgNextLSB, bgNextMSB: snapshot.BgNextMSB,
        bgShiftPatLo: snapshot.BgShiftPatLo, bgShiftPatHi: snapshot.BgShiftPatHi,
        bgShiftAttrLo: snapshot.BgShiftAttrLo, bgShiftAttrHi: snapshot.BgShiftAttrHi,
        spritePatLo: snapshot.SpritePatLo, spritePatHi: snapshot.SpritePatHi,
        spriteAttr: snapshot.SpriteAttr, spriteX: snapshot.SpriteX, spriteIsZero: snapshot.SpriteIsZero,
        zeroHitPossible: snapshot.ZeroHitPossible, zeroBeingRendered: snapshot.ZeroBeingRendered,
        frameComplete: snapshot.FrameComplete, Cycles: snapshot.Cycles,
    }
    return nil
}

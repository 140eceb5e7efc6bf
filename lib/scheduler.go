package lib

import "log"

// Machine owns every component of one running console as sibling fields -
// CPU, PPU, APU, cartridge Mapper and the two Controllers all live here,
// none of them holding a pointer to another. Machine itself is the only
// thing that knows how the components wire together: it implements
// CPUBus, steps the PPU and APU in lockstep with the CPU, and turns the
// DMCRequest/OAM-DMA contracts into CPU stalls.
type Machine struct {
    CPU      CPU
    PPU      PPU
    APU      APUState
    Mapper   Mapper
    Pad1     Controller
    Pad2     Controller

    ram [0x0800]byte

    config Config

    oamDMAPage    byte
    oamDMAPending bool
    pendingDMC    DMCRequest

    ppuCycleCredit float64
    apuCycleCredit float64

    Screen VirtualScreen
    frameReady bool

    Video VideoSink
    Audio AudioSink
}

// MakeMachine builds a Machine from a parsed ROM and a Config. The
// cartridge's own mapper number picks the Mapper implementation.
func MakeMachine(rom NESFile, config Config) (*Machine, error) {
    mapper, err := MakeMapper(rom.Mapper, rom.ProgramRom, rom.CharacterRom, rom.Mirroring, config.RomPath)
    if err != nil {
        return nil, err
    }

    machine := &Machine{
        CPU:    StartupCPU(),
        PPU:    MakePPU(),
        APU:    MakeAPU(),
        Mapper: mapper,
        Screen: MakeVirtualScreen(256, 240),
        config: config,
    }

    machine.CPU.Debug = config.CPUDebug
    ApuDebug = config.APUDebug

    machine.CPU.Reset(machine)

    return machine, nil
}

// Read implements CPUBus by dispatching the CPU's address space: 2KB
// internal RAM mirrored through $1FFF, PPU registers mirrored every 8
// bytes through $3FFF, the APU/IO block at $4000-$4017, and everything
// from $4020 up handed to the cartridge Mapper.
func (m *Machine) Read(address uint16) byte {
    switch {
    case address < 0x2000:
        return m.ram[address&0x07ff]
    case address < 0x4000:
        return m.PPU.ReadRegister(address&0x7, m.Mapper)
    case address == 0x4015:
        return m.APU.ReadStatus()
    case address == 0x4016:
        return m.Pad1.Read()
    case address == 0x4017:
        return m.Pad2.Read()
    case address < 0x4020:
        return 0
    default:
        return m.Mapper.CPURead(address)
    }
}

// Write implements CPUBus, mirroring Read's address decoding.
func (m *Machine) Write(address uint16, value byte) {
    switch {
    case address < 0x2000:
        m.ram[address&0x07ff] = value
    case address < 0x4000:
        if m.PPU.WriteRegister(address&0x7, value, m.Mapper) {
            m.CPU.RequestNMI()
        }
    case address == 0x4000:
        m.APU.WritePulse1Duty(value)
    case address == 0x4001:
        m.APU.WritePulse1Sweep(value)
    case address == 0x4002:
        m.APU.WritePulse1Timer(value)
    case address == 0x4003:
        m.APU.WritePulse1Length(value)
    case address == 0x4004:
        m.APU.WritePulse2Duty(value)
    case address == 0x4005:
        m.APU.WritePulse2Sweep(value)
    case address == 0x4006:
        m.APU.WritePulse2Timer(value)
    case address == 0x4007:
        m.APU.WritePulse2Length(value)
    case address == 0x4008:
        m.APU.WriteTriangleCounter(value)
    case address == 0x400a:
        m.APU.WriteTriangleTimerLow(value)
    case address == 0x400b:
        m.APU.WriteTriangleTimerHigh(value)
    case address == 0x400c:
        m.APU.WriteNoiseEnvelope(value)
    case address == 0x400e:
        m.APU.WriteNoiseMode(value)
    case address == 0x400f:
        m.APU.WriteNoiseLength(value)
    case address == 0x4010:
        m.APU.WriteDMCEnable(value)
    case address == 0x4011:
        m.APU.WriteDMCLoad(value)
    case address == 0x4012:
        m.APU.WriteDMCAddress(value)
    case address == 0x4013:
        m.APU.WriteDMCLength(value)
    case address == 0x4014:
        m.oamDMAPage = value
        m.oamDMAPending = true
    case address == 0x4015:
        m.APU.WriteChannelEnable(value)
    case address == 0x4016:
        m.Pad1.Write(value)
        m.Pad2.Write(value)
    case address == 0x4017:
        m.APU.WriteFrameCounter(value)
    case address < 0x4020:
        // unused IO space
    default:
        m.Mapper.CPUWrite(address, value, m.CPU.Cycle)
    }
}

// runOAMDMA copies 256 bytes from page*$100 into OAM. It costs 513 CPU
// cycles (514 if the CPU is mid-odd-cycle), applied as a stall so the PPU
// and APU keep advancing in lockstep with the cycles Step reports used.
func (m *Machine) runOAMDMA() {
    page := uint16(m.oamDMAPage) << 8
    for i := 0; i < 256; i++ {
        m.PPU.WriteOAMByte(m.Read(page + uint16(i)))
    }
    cycles := 513
    if m.CPU.Cycle%2 != 0 {
        cycles++
    }
    m.CPU.Stall(cycles)
}

// Step runs exactly one CPU instruction (or stall cycle) and advances the
// PPU and APU the matching number of dots/cycles, applying the OAM DMA and
// DMC cycle-stealing contracts in between. It returns the number of CPU
// cycles consumed.
func (m *Machine) Step() (uint64, error) {
    if m.oamDMAPending {
        m.oamDMAPending = false
        m.runOAMDMA()
    }

    if m.pendingDMC.NeedsSample {
        sample := m.Read(m.pendingDMC.Address)
        stall := m.APU.DMC.ReceiveSample(sample)
        m.CPU.Stall(stall)
        m.pendingDMC = DMCRequest{}
    }

    used, err := m.CPU.Step(m, m.config.Strict)
    if err != nil {
        return used, err
    }

    m.runPPU(used)
    m.runAPU(used)

    return used, nil
}

func (m *Machine) runPPU(cpuCycles uint64) {
    m.ppuCycleCredit += float64(cpuCycles) * 3
    for m.ppuCycleCredit >= 1 {
        m.ppuCycleCredit--
        if m.PPU.Step(m.Mapper, &m.Screen) {
            m.CPU.RequestNMI()
        }
        if m.PPU.FrameComplete() {
            m.frameReady = true
            if m.Video != nil {
                m.Video.RenderFrame(&m.Screen)
            }
        }
    }
    m.Mapper.Tick()
    if m.Mapper.IRQAsserted() {
        m.CPU.RequestIRQ()
    }
}

func (m *Machine) runAPU(cpuCycles uint64) {
    cyclesPerSample := CPUSpeed / float64(m.config.SampleRate)
    m.apuCycleCredit += float64(cpuCycles) / 2
    for m.apuCycleCredit >= 1 {
        m.apuCycleCredit--
        samples, request := m.APU.Run(1, cyclesPerSample)
        if samples != nil && m.Audio != nil {
            m.Audio.PushSamples(samples)
        }
        if request.NeedsSample {
            m.pendingDMC = request
        }
    }
    if m.APU.IsIRQAsserted() {
        m.CPU.RequestIRQ()
    }
}

// RunFrame advances the machine until it has produced one completed video
// frame, or an error halts it (only possible in strict mode).
func (m *Machine) RunFrame() error {
    for {
        _, err := m.Step()
        if err != nil {
            if m.config.CPUDebug > 0 {
                log.Printf("halted: %v", err)
            }
            return err
        }
        if m.frameReady {
            m.frameReady = false
            return nil
        }
    }
}

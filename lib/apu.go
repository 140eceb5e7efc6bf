package lib

import (
    "log"
    "math"
)

var ApuDebug uint = 0

type Divider struct {
    ClockPeriod uint16
    Count       int16
}

func (divider *Divider) Reset() {
    divider.Count = int16(divider.ClockPeriod)
}

func (divider *Divider) Clock() bool {
    if divider.Count >= 0 {
        divider.Count -= 1
        if divider.Count == -1 {
            divider.Reset()
            return true
        }
    }
    return false
}

type Timer struct {
    Divider Divider
    Cycles  float64
    Low     uint16
    High    uint16
}

func (timer *Timer) Period() uint16 {
    return timer.Divider.ClockPeriod
}

func (timer *Timer) SetPeriod(value uint16) {
    timer.Divider.ClockPeriod = value
}

func (timer *Timer) Run(cycles float64) int {
    timer.Cycles += cycles
    count := 0
    for timer.Cycles > 0 {
        if timer.Divider.Clock() {
            count += 1
        }
        timer.Cycles -= 1
    }
    return count
}

func (timer *Timer) Reset() {
    value := (timer.High << 8) | timer.Low
    timer.Divider.ClockPeriod = value + 1
    timer.Divider.Reset()
}

type EnvelopeGenerator struct {
    Divider Divider
    Loop    bool
    Disable bool
    Value   byte
    Counter byte
}

func (envelope *EnvelopeGenerator) Volume() byte {
    if envelope.Disable {
        return envelope.Value
    }
    return envelope.Counter
}

func (envelope *EnvelopeGenerator) Tick() {
    if envelope.Divider.Clock() {
        if envelope.Loop {
            if envelope.Counter == 0 {
                envelope.Counter = 15
            } else {
                envelope.Counter -= 1
            }
        } else if envelope.Counter > 0 {
            envelope.Counter -= 1
        }
    }
}

func (envelope *EnvelopeGenerator) Set(loop bool, disable bool, value byte) {
    envelope.Divider.ClockPeriod = uint16(value + 1)
    envelope.Loop = loop
    envelope.Disable = disable
    envelope.Value = value
    envelope.Counter = 15
}

type SquareSequencer struct {
    Duty     byte
    Position byte
}

var dutyTables = [4][8]byte{
    {0, 0, 0, 0, 0, 0, 0, 1},
    {0, 0, 0, 0, 0, 0, 1, 1},
    {0, 0, 0, 0, 1, 1, 1, 1},
    {1, 1, 1, 1, 1, 1, 0, 0},
}

func (sequencer *SquareSequencer) SetDuty(duty byte) {
    sequencer.Duty = duty
}

func (sequencer *SquareSequencer) Run(clocks int) {
    value := int(sequencer.Position)
    value -= clocks
    for value < 0 {
        value += 8
    }
    sequencer.Position = byte(value)
}

func (sequencer *SquareSequencer) Value() byte {
    return dutyTables[sequencer.Duty][sequencer.Position]
}

type Sweep struct {
    Divider    Divider
    Enabled    bool
    Negate     bool
    ShiftCount byte
}

func (sweep *Sweep) Tick(pulse1 bool, timer *Timer) {
    if !sweep.Enabled {
        return
    }
    if sweep.Divider.Clock() {
        shifted := int(timer.Period() >> sweep.ShiftCount)
        if sweep.Negate {
            if pulse1 {
                shifted = -shifted - 1
            } else {
                shifted = -shifted
            }
        }
        value := int(timer.Period()) + shifted
        if value < 0 {
            value = 0
        }
        if value > 0x800 {
            value = 0x800
        }
        timer.SetPeriod(uint16(value))
    }
}

var lengthTable = [32]byte{
    10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
    12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

type LengthCounter struct {
    Halt   bool
    Length byte
}

func (length *LengthCounter) SetLength(index byte) {
    if int(index) >= len(lengthTable) {
        return
    }
    length.Length = lengthTable[index]
}

func (length *LengthCounter) Clear() {
    length.Length = 0
}

func (length *LengthCounter) Tick() {
    if !length.Halt && length.Length > 0 {
        length.Length -= 1
    }
}

type Pulse struct {
    Name      string
    Sweep     Sweep
    Timer     Timer
    Envelope  EnvelopeGenerator
    Length    LengthCounter
    Sequencer SquareSequencer
}

func (pulse *Pulse) ParseSweep(value byte) {
    enable := (value >> 7) & 0x1
    period := (value >> 4) & 0x7
    negate := (value >> 3) & 0x1
    shift := value & 0x7
    pulse.Sweep.Enabled = enable == 0x1
    pulse.Sweep.Divider.ClockPeriod = uint16(period + 1)
    pulse.Sweep.Divider.Reset()
    pulse.Sweep.Negate = negate == 0x1
    pulse.Sweep.ShiftCount = shift
}

func (pulse *Pulse) SetDuty(duty byte) {
    pulse.Sequencer.SetDuty(duty)
}

func (pulse *Pulse) Run(cycles float64) {
    clocks := pulse.Timer.Run(cycles)
    pulse.Sequencer.Run(clocks)
}

// muted reports the sweep unit's mute condition: see Open Question (b).
func (pulse *Pulse) muted() bool {
    return pulse.Timer.Divider.ClockPeriod < 8 || pulse.Timer.Divider.ClockPeriod > 0x7ff
}

func (pulse *Pulse) GenerateSample() byte {
    if pulse.Length.Length == 0 || pulse.muted() {
        return 0
    }
    return pulse.Sequencer.Value() * pulse.Envelope.Volume()
}

type Noise struct {
    Length        LengthCounter
    Envelope      EnvelopeGenerator
    Mode          byte
    Timer         Timer
    ShiftRegister uint16
}

func (noise *Noise) GenerateSample() byte {
    if noise.Length.Length == 0 || noise.ShiftRegister&0x1 == 0 {
        return 0
    }
    return noise.Envelope.Volume()
}

func (noise *Noise) Run(cycles float64) {
    // the noise channel's LFSR runs at the CPU clock, twice the APU rate.
    clocks := noise.Timer.Run(cycles * 2)
    for clocks > 0 {
        bit0 := noise.ShiftRegister & 0x1
        var feedbackBit uint16
        if noise.Mode == 1 {
            feedbackBit = (noise.ShiftRegister >> 6) & 0x1
        } else {
            feedbackBit = (noise.ShiftRegister >> 1) & 0x1
        }
        feedback := bit0 ^ feedbackBit
        noise.ShiftRegister = (feedback << 14) | (noise.ShiftRegister >> 1)
        clocks -= 1
    }
}

var TriangleWaveForm = [32]byte{
    15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
    0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

type Triangle struct {
    Timer                    Timer
    Phase                    int
    Length                   LengthCounter
    ControlFlag              bool
    LinearCounterReloadFlag  bool
    LinearCounterReload      int
    LinearCounter            int
}

func (triangle *Triangle) Run(cycles float64) {
    clocks := triangle.Timer.Run(cycles * 2)
    triangle.Phase = (triangle.Phase + clocks) % len(TriangleWaveForm)
}

func (triangle *Triangle) TickLengthCounter() {
    triangle.Length.Tick()
}

func (triangle *Triangle) TickLinearCounter() {
    if triangle.LinearCounterReloadFlag {
        triangle.LinearCounter = triangle.LinearCounterReload
    } else if triangle.LinearCounter > 0 {
        triangle.LinearCounter -= 1
    }

    if !triangle.ControlFlag {
        triangle.LinearCounterReloadFlag = false
    }
}

func (triangle *Triangle) GenerateSample() byte {
    if triangle.Timer.Divider.ClockPeriod < 5 {
        return 0
    }
    if triangle.Length.Length > 0 && triangle.LinearCounter > 0 {
        return TriangleWaveForm[triangle.Phase]
    }
    return 0
}

// DMCRequest is what APU.Run returns when the DMC channel has exhausted its
// shift register and needs a new sample byte from memory. The scheduler
// reads the byte from the bus/mapper and hands it back via
// DMC.ReceiveSample - the APU never holds a pointer into the CPU's memory.
type DMCRequest struct {
    NeedsSample bool
    Address     uint16
}

type DMC struct {
    Irq             bool
    Loop            bool
    Frequency       float64
    Counter         float64
    StartingAddress uint16
    Address         uint16
    Length          uint16
    BytesRemaining  uint16
    OutputLevel     byte

    IRQAsserted bool
    Silence     bool

    ShiftRegister byte
    BitsRemaining byte

    SampleBuffer byte
}

func (dmc *DMC) GenerateSample() byte {
    return dmc.OutputLevel
}

func dmcNTSCRate(value byte) uint16 {
    rates := [16]uint16{428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54}
    return rates[value&0xf]
}

func (dmc *DMC) Reset() {
    dmc.Silence = false
    dmc.BytesRemaining = dmc.Length
    dmc.Address = dmc.StartingAddress
}

// Run advances the DMC by cycles APU cycles, returning a DMCRequest when a
// new sample byte is needed. If a request is outstanding the caller must
// call ReceiveSample before calling Run again.
func (dmc *DMC) Run(cycles float64) DMCRequest {
    dmc.Counter += cycles
    for dmc.Counter >= dmc.Frequency {
        dmc.Counter -= dmc.Frequency
        if !dmc.Silence {
            if dmc.ShiftRegister&0x1 == 1 {
                if dmc.OutputLevel <= 125 {
                    dmc.OutputLevel += 2
                } else {
                    dmc.OutputLevel = 127
                }
            } else {
                if dmc.OutputLevel >= 2 {
                    dmc.OutputLevel -= 2
                } else {
                    dmc.OutputLevel = 0
                }
            }
        }

        dmc.ShiftRegister >>= 1
        if dmc.BitsRemaining > 0 {
            dmc.BitsRemaining -= 1
        }

        if dmc.BitsRemaining == 0 {
            if dmc.BytesRemaining > 0 {
                return DMCRequest{NeedsSample: true, Address: dmc.Address}
            }
            dmc.Silence = true
        }
    }
    return DMCRequest{}
}

// ReceiveSample delivers the byte the scheduler read in response to a
// DMCRequest, and returns how many CPU cycles the scheduler should stall
// for (the real chip's exact 1-4 cycle stall depends on what the CPU was
// doing when the DMA fired; this models the common 4-cycle case).
func (dmc *DMC) ReceiveSample(value byte) int {
    dmc.SampleBuffer = value
    dmc.ShiftRegister = value
    dmc.BitsRemaining = 8

    if dmc.Address < 0xffff {
        dmc.Address += 1
    } else {
        dmc.Address = 0x8000
    }

    if dmc.BytesRemaining > 0 {
        dmc.BytesRemaining -= 1
    }

    if dmc.BytesRemaining == 0 {
        if dmc.Loop {
            dmc.Reset()
        } else if dmc.Irq {
            dmc.IRQAsserted = true
        }
    }

    return 4
}

type APUState struct {
    Cycles              float64
    Clock               uint64
    FrameMode           bool
    UpdatedFrameCounter float64
    InterruptInhibit    bool
    FrameIRQAsserted    bool

    SampleCycles   float64
    SampleBuffer   []float32
    SamplePosition int

    Pulse1   Pulse
    Pulse2   Pulse
    Triangle Triangle
    Noise    Noise
    DMC      DMC

    EnableNoise    bool
    EnableTriangle bool
    EnablePulse2   bool
    EnablePulse1   bool
}

func MakeAPU() APUState {
    return APUState{
        SampleBuffer: make([]float32, 1024),
        Pulse1:       Pulse{Name: "pulse1"},
        Pulse2:       Pulse{Name: "pulse2"},
        Noise:        Noise{ShiftRegister: 1},
        DMC:          DMC{Silence: true, Frequency: 5000},
    }
}

func (apu *APUState) QuarterFrame() {
    apu.Pulse1.Envelope.Tick()
    apu.Pulse2.Envelope.Tick()
    apu.Noise.Envelope.Tick()
    apu.Triangle.TickLinearCounter()
}

func (apu *APUState) HalfFrame() {
    apu.Pulse1.Length.Tick()
    apu.Pulse2.Length.Tick()
    apu.Pulse1.Sweep.Tick(true, &apu.Pulse1.Timer)
    apu.Pulse2.Sweep.Tick(false, &apu.Pulse2.Timer)
    apu.Noise.Length.Tick()
    apu.Triangle.TickLengthCounter()
}

// Run advances the APU by apuCycles APU cycles (1 APU cycle = 2 CPU
// cycles), ticking the frame sequencer and filling the sample buffer.
// It returns completed sample buffers (nil most calls) and any pending
// DMCRequest for the scheduler to service.
func (apu *APUState) Run(apuCycles float64, cyclesPerSample float64) ([]float32, DMCRequest) {
    apu.Pulse1.Run(apuCycles)
    apu.Pulse2.Run(apuCycles)
    apu.Triangle.Run(apuCycles)
    apu.Noise.Run(apuCycles)
    request := apu.DMC.Run(apuCycles)

    apu.Cycles += apuCycles

    if apu.UpdatedFrameCounter > 0 {
        apu.UpdatedFrameCounter -= apuCycles * 2
        if apu.UpdatedFrameCounter <= 0 {
            apu.Cycles = 0
            apu.Clock = 0
            apu.UpdatedFrameCounter = 0
            if !apu.FrameMode {
                apu.QuarterFrame()
                apu.HalfFrame()
            }
        }
    }

    const apuCounter = 3728.5
    for apu.Cycles >= apuCounter {
        apu.Clock += 1
        apu.Cycles -= apuCounter

        if apu.FrameMode {
            if apu.Clock%4 == 0 && !apu.InterruptInhibit {
                apu.FrameIRQAsserted = true
            }
            if apu.Clock%2 == 0 {
                apu.HalfFrame()
            }
            apu.QuarterFrame()
        } else {
            switch apu.Clock % 5 {
            case 0, 1, 2, 4:
                apu.QuarterFrame()
            }
            switch apu.Clock % 5 {
            case 1, 4:
                apu.HalfFrame()
            }
        }
    }

    apu.SampleCycles += apuCycles
    var out []float32
    if apu.SampleCycles > cyclesPerSample {
        sample := apu.GenerateSample()
        for apu.SampleCycles >= cyclesPerSample {
            apu.SampleCycles -= cyclesPerSample
            apu.SampleBuffer[apu.SamplePosition] = sample
            apu.SamplePosition += 1
            if apu.SamplePosition >= len(apu.SampleBuffer) {
                apu.SamplePosition = 0
                if out == nil {
                    out = make([]float32, len(apu.SampleBuffer))
                }
                copy(out, apu.SampleBuffer)
            }
        }
    }

    return out, request
}

func (apu *APUState) WriteDMCEnable(value byte) {
    irqEnable := (value >> 7) & 0x1
    loop := (value >> 6) & 0x1
    frequency := value & 0xf

    apu.DMC.Irq = irqEnable == 1
    apu.DMC.Loop = loop == 1
    apu.DMC.Frequency = float64(dmcNTSCRate(frequency)) / 2.0
    apu.DMC.Counter = 0
}

func (apu *APUState) WriteDMCAddress(value byte) {
    apu.DMC.StartingAddress = 0xc000 + uint16(value)*64
    apu.DMC.Address = apu.DMC.StartingAddress
}

func (apu *APUState) WriteDMCLength(value byte) {
    apu.DMC.Length = uint16(value)*16 + 1
    apu.DMC.BytesRemaining = apu.DMC.Length
}

func (apu *APUState) WriteDMCLoad(value byte) {
    apu.DMC.OutputLevel = value & 0x7f
}

func (apu *APUState) GenerateSample() float32 {
    var pulse byte
    if apu.EnablePulse1 {
        pulse += apu.Pulse1.GenerateSample()
    }
    if apu.EnablePulse2 {
        pulse += apu.Pulse2.GenerateSample()
    }

    var pulseValue float32
    if pulse != 0 {
        pulseValue = 95.88 / (8128.0/float32(pulse) + 100)
    }

    var triangle, noise, dmc float32
    if apu.EnableTriangle {
        triangle = float32(apu.Triangle.GenerateSample()) / 8227.0
    }
    if apu.EnableNoise {
        noise = float32(apu.Noise.GenerateSample()) / 12241.0
    }
    dmc = float32(apu.DMC.GenerateSample()) / 22638.0

    all := triangle + noise + dmc
    var restValue float32
    if math.Abs(float64(all)) >= 0.00001 {
        restValue = 159.79 / (1.0/all + 100)
    }

    return pulseValue + restValue
}

func (apu *APUState) WritePulse1Duty(value byte) {
    duty := value >> 6
    loopEnvelope := (value >> 5) & 0x1
    halt := (value >> 4) & 0x1
    volume := value & 0xf

    apu.Pulse1.SetDuty(duty)
    apu.Pulse1.Length.Halt = halt == 0x1
    apu.Pulse1.Envelope.Set(loopEnvelope == 0x1, halt == 0x1, volume)
}

func (apu *APUState) WritePulse1Sweep(value byte) {
    apu.Pulse1.ParseSweep(value)
}

func (apu *APUState) WritePulse1Timer(value byte) {
    apu.Pulse1.Timer.Low = uint16(value)
    apu.Pulse1.Timer.Reset()
}

func (apu *APUState) WritePulse1Length(value byte) {
    apu.Pulse1.Timer.High = uint16(value & 7)
    apu.Pulse1.Length.SetLength(value >> 3)
    apu.Pulse1.Sequencer.Position = 0
    apu.Pulse1.Timer.Reset()
}

func (apu *APUState) WritePulse2Duty(value byte) {
    duty := value >> 6
    loopEnvelope := (value >> 5) & 0x1
    halt := (value >> 4) & 0x1
    volume := value & 0xf

    apu.Pulse2.SetDuty(duty)
    apu.Pulse2.Length.Halt = halt == 0x1
    apu.Pulse2.Envelope.Set(loopEnvelope == 0x1, halt == 0x1, volume)
}

func (apu *APUState) WritePulse2Sweep(value byte) {
    apu.Pulse2.ParseSweep(value)
}

func (apu *APUState) WritePulse2Timer(value byte) {
    apu.Pulse2.Timer.Low = uint16(value)
    apu.Pulse2.Timer.Reset()
}

func (apu *APUState) WritePulse2Length(value byte) {
    apu.Pulse2.Timer.High = uint16(value & 7)
    apu.Pulse2.Length.SetLength(value >> 3)
    apu.Pulse2.Timer.Reset()
}

func (apu *APUState) WriteTriangleCounter(value byte) {
    apu.Triangle.ControlFlag = (value>>7)&0x1 == 1
    apu.Triangle.LinearCounterReload = int(value & 0x7f)
}

func (apu *APUState) WriteTriangleTimerLow(value byte) {
    apu.Triangle.Timer.Low = uint16(value)
    apu.Triangle.Timer.Reset()
}

func (apu *APUState) WriteTriangleTimerHigh(value byte) {
    apu.Triangle.Timer.High = uint16(value & 7)
    apu.Triangle.Timer.Reset()
    apu.Triangle.Length.SetLength(value >> 3)
    apu.Triangle.LinearCounterReloadFlag = true
}

func noisePeriod(period byte) uint16 {
    periods := [16]uint16{4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068}
    return periods[period&0xf]
}

func (apu *APUState) WriteNoiseMode(value byte) {
    apu.Noise.Mode = (value >> 7) & 0x1
    apu.Noise.Timer.SetPeriod(noisePeriod(value & 0xf))
}

func (apu *APUState) WriteNoiseEnvelope(value byte) {
    loop := (value>>5)&0x1 == 0x1
    constant := (value>>4)&0x1 == 0x1
    period := value & 0xf
    apu.Noise.Envelope.Set(loop, constant, period)
}

func (apu *APUState) WriteNoiseLength(value byte) {
    apu.Noise.Length.SetLength(value >> 3)
}

func (apu *APUState) IsIRQAsserted() bool {
    return apu.FrameIRQAsserted || apu.DMC.IRQAsserted
}

func (apu *APUState) WriteChannelEnable(value byte) {
    dmc := (value >> 4) & 0x1
    noise := (value >> 3) & 0x1
    triangle := (value >> 2) & 0x1
    pulse2 := (value >> 1) & 0x1
    pulse1 := value & 0x1

    apu.DMC.IRQAsserted = false

    if dmc == 1 {
        if apu.DMC.BytesRemaining == 0 {
            apu.DMC.Reset()
        }
    } else {
        apu.DMC.BytesRemaining = 0
    }

    apu.EnableNoise = noise == 0x1
    apu.EnableTriangle = triangle == 0x1
    apu.EnablePulse2 = pulse2 == 0x1
    apu.EnablePulse1 = pulse1 == 0x1

    if !apu.EnablePulse1 {
        apu.Pulse1.Length.Clear()
    }
    if !apu.EnablePulse2 {
        apu.Pulse2.Length.Clear()
    }
    if !apu.EnableTriangle {
        apu.Triangle.Length.Clear()
    }
    if !apu.EnableNoise {
        apu.Noise.Length.Clear()
    }
}

func (apu *APUState) WriteFrameCounter(value byte) {
    mode := value >> 7
    interrupt := (value >> 6) & 0x1
    apu.InterruptInhibit = interrupt == 1
    if interrupt == 1 {
        apu.FrameIRQAsserted = false
    }
    apu.FrameMode = mode == 0
    apu.UpdatedFrameCounter = 4

    if ApuDebug > 0 {
        log.Printf("apu: frame counter mode=%v", mode)
    }
}

func boolToByte(x bool) byte {
    if x {
        return 1
    }
    return 0
}

func (apu *APUState) ReadStatus() byte {
    status := (boolToByte(apu.DMC.IRQAsserted) << 7) |
        (boolToByte(apu.FrameIRQAsserted) << 6) |
        (boolToByte(apu.DMC.BytesRemaining > 0) << 4) |
        (boolToByte(apu.Noise.Length.Length > 0) << 3) |
        (boolToByte(apu.Triangle.Length.Length > 0) << 2) |
        (boolToByte(apu.Pulse2.Length.Length > 0) << 1) |
        boolToByte(apu.Pulse1.Length.Length > 0)

    apu.FrameIRQAsserted = false
    return status
}

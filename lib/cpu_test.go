package lib

import "testing"

// testBus is a flat 64KB CPUBus backing, enough to exercise the
// interpreter without wiring a full Machine.
type testBus struct {
    memory [0x10000]byte
}

func (bus *testBus) Read(address uint16) byte {
    return bus.memory[address]
}

func (bus *testBus) Write(address uint16, value byte) {
    bus.memory[address] = value
}

func newTestBus(origin uint16, program []byte) *testBus {
    bus := &testBus{}
    copy(bus.memory[origin:], program)
    bus.memory[ResetVector] = byte(origin)
    bus.memory[ResetVector+1] = byte(origin >> 8)
    return bus
}

func runProgram(test *testing.T, cpu *CPU, bus *testBus, steps int) {
    for i := 0; i < steps; i++ {
        _, err := cpu.Step(bus, false)
        if err != nil {
            test.Fatalf("cpu step %v failed: %v", i, err)
        }
    }
}

func TestCPUResetLoadsVector(test *testing.T) {
    bus := newTestBus(0x8000, []byte{0xea})
    cpu := StartupCPU()
    cpu.Reset(bus)

    if cpu.PC != 0x8000 {
        test.Fatalf("expected PC 0x8000 after reset but was 0x%04x", cpu.PC)
    }
    if cpu.SP != 0xfd {
        test.Fatalf("expected SP 0xfd after reset but was 0x%02x", cpu.SP)
    }
}

func TestCPULoadAndStore(test *testing.T) {
    bus := newTestBus(0x8000, []byte{
        0xa9, 0x42, // lda #$42
        0x8d, 0x00, 0x02, // sta $0200
    })
    cpu := StartupCPU()
    cpu.Reset(bus)
    runProgram(test, &cpu, bus, 2)

    if cpu.A != 0x42 {
        test.Fatalf("expected A to be 0x42 but was 0x%02x", cpu.A)
    }
    if bus.Read(0x0200) != 0x42 {
        test.Fatalf("expected $0200 to hold 0x42 but was 0x%02x", bus.Read(0x0200))
    }
}

func TestCPUBranchTakenLoop(test *testing.T) {
    bus := newTestBus(0x8000, []byte{
        0xa2, 0x05, // ldx #$05
        0xca,       // dex
        0xd0, 0xfd, // bne -3
        0x00, // brk, never reached within the step budget below
    })
    cpu := StartupCPU()
    cpu.Reset(bus)
    runProgram(test, &cpu, bus, 1+5*2)

    if cpu.X != 0 {
        test.Fatalf("expected X to reach 0 but was 0x%02x", cpu.X)
    }
}

func TestCPUADCSetsCarryAndOverflow(test *testing.T) {
    bus := newTestBus(0x8000, []byte{
        0xa9, 0x7f, // lda #$7f
        0x69, 0x01, // adc #$01
    })
    cpu := StartupCPU()
    cpu.Reset(bus)
    runProgram(test, &cpu, bus, 2)

    if cpu.A != 0x80 {
        test.Fatalf("expected A to be 0x80 but was 0x%02x", cpu.A)
    }
    if !cpu.getFlag(FlagOverflow) {
        test.Fatalf("expected overflow flag set for 0x7f+0x01")
    }
    if cpu.getFlag(FlagCarry) {
        test.Fatalf("expected carry flag clear for 0x7f+0x01")
    }
}

func TestCPUStackPushPop(test *testing.T) {
    bus := newTestBus(0x8000, []byte{
        0xa9, 0x33, // lda #$33
        0x48,       // pha
        0xa9, 0x00, // lda #$00
        0x68,       // pla
    })
    cpu := StartupCPU()
    cpu.Reset(bus)
    runProgram(test, &cpu, bus, 4)

    if cpu.A != 0x33 {
        test.Fatalf("expected A restored to 0x33 from stack but was 0x%02x", cpu.A)
    }
}

func TestCPUNMIServicedBeforeNextInstruction(test *testing.T) {
    bus := newTestBus(0x8000, []byte{0xea, 0xea})
    bus.memory[NMIVector] = 0x00
    bus.memory[NMIVector+1] = 0x90

    cpu := StartupCPU()
    cpu.Reset(bus)
    cpu.RequestNMI()

    used, err := cpu.Step(bus, false)
    if err != nil {
        test.Fatalf("unexpected error servicing NMI: %v", err)
    }
    if used != 7 {
        test.Fatalf("expected NMI service to take 7 cycles but took %v", used)
    }
    if cpu.PC != 0x9000 {
        test.Fatalf("expected PC to jump to NMI vector 0x9000 but was 0x%04x", cpu.PC)
    }
}

func TestCPUSaveStateRoundTrip(test *testing.T) {
    bus := newTestBus(0x8000, []byte{0xa9, 0x77})
    cpu := StartupCPU()
    cpu.Reset(bus)
    cpu.RequestIRQ()
    runProgram(test, &cpu, bus, 0)

    data, err := cpu.MarshalJSON()
    if err != nil {
        test.Fatalf("could not marshal cpu: %v", err)
    }

    var restored CPU
    err = restored.UnmarshalJSON(data)
    if err != nil {
        test.Fatalf("could not unmarshal cpu: %v", err)
    }

    if restored.PC != cpu.PC || restored.SP != cpu.SP || restored.irqLine != cpu.irqLine {
        test.Fatalf("round-tripped cpu state does not match: %+v vs %+v", restored, cpu)
    }
}

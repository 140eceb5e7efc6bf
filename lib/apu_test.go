package lib

import "testing"

func TestLengthCounterTicksDownAndHalts(test *testing.T) {
    var length LengthCounter
    length.SetLength(0) // lengthTable[0] == 10
    length.Tick()

    if length.Length != 9 {
        test.Fatalf("expected length counter to tick down by one, got %v", length.Length)
    }

    length.Halt = true
    length.Tick()
    if length.Length != 9 {
        test.Fatalf("expected a halted length counter not to tick, got %v", length.Length)
    }
}

func TestPulseMutedBelowMinimumPeriod(test *testing.T) {
    var pulse Pulse
    pulse.Length.SetLength(0)
    pulse.Timer.Divider.ClockPeriod = 2 // below the mute threshold of 8

    if pulse.GenerateSample() != 0 {
        test.Fatalf("expected a pulse channel below period 8 to be muted")
    }
}

func TestAPUChannelEnableGatesStatusBits(test *testing.T) {
    apu := MakeAPU()
    apu.Pulse1.Length.SetLength(0)
    apu.WriteChannelEnable(0x01) // enable pulse1 only

    status := apu.ReadStatus()
    if status&0x1 == 0 {
        test.Fatalf("expected status bit 0 (pulse1) to report a nonzero length counter")
    }
    if status&0x2 != 0 {
        test.Fatalf("expected status bit 1 (pulse2) to be clear since it was never enabled")
    }
}

func TestAPUFrameCounterIRQInhibit(test *testing.T) {
    apu := MakeAPU()
    apu.WriteFrameCounter(0x40) // bit 6: interrupt inhibit

    if !apu.InterruptInhibit {
        test.Fatalf("expected bit 6 of $4017 to set the interrupt-inhibit flag")
    }
}

func TestDMCRequestsSampleWhenShiftRegisterExhausted(test *testing.T) {
    dmc := DMC{
        Frequency:       10,
        StartingAddress: 0xc000,
        Length:          2,
    }
    dmc.Reset()
    dmc.BitsRemaining = 1 // one more clock exhausts the shift register

    request := dmc.Run(10)
    if !request.NeedsSample {
        test.Fatalf("expected exhausting the shift register with bytes remaining to request a sample")
    }
    if request.Address != 0xc000 {
        test.Fatalf("expected the sample request to target the DMC's current address 0xc000, got 0x%04x", request.Address)
    }
}

func TestDMCReceiveSampleAdvancesAddressAndStalls(test *testing.T) {
    dmc := DMC{StartingAddress: 0xc000, Length: 1}
    dmc.Reset()

    stall := dmc.ReceiveSample(0xaa)
    if stall != 4 {
        test.Fatalf("expected ReceiveSample to report a 4-cycle stall, got %v", stall)
    }
    if dmc.Address != 0xc001 {
        test.Fatalf("expected the DMC address to advance by one, got 0x%04x", dmc.Address)
    }
    if dmc.BytesRemaining != 0 {
        test.Fatalf("expected bytesRemaining to reach 0 after the only byte, got %v", dmc.BytesRemaining)
    }
}

package lib

import (
    "bytes"
    "encoding/json"
    "testing"
)

func makeTestMachine(test *testing.T) *Machine {
    rom := NESFile{
        ProgramRom:   make([]byte, 0x8000),
        CharacterRom: make([]byte, 0x2000),
        Mapper:       0,
        Mirroring:    MirrorHorizontal,
    }
    config, err := MakeConfig("test.nes")
    if err != nil {
        test.Fatalf("could not build config: %v", err)
    }

    machine, err := MakeMachine(rom, config)
    if err != nil {
        test.Fatalf("could not build machine: %v", err)
    }
    return machine
}

func TestSaveStateRoundTripsThroughSerialize(test *testing.T) {
    machine := makeTestMachine(test)
    machine.CPU.A = 0x42
    machine.ram[0x10] = 0x99

    var buffer bytes.Buffer
    err := machine.Serialize(&buffer)
    if err != nil {
        test.Fatalf("could not serialize machine: %v", err)
    }

    other := makeTestMachine(test)
    var state SaveState
    err = json.Unmarshal(buffer.Bytes(), &state)
    if err != nil {
        test.Fatalf("could not decode save state: %v", err)
    }

    err = other.Restore(state)
    if err != nil {
        test.Fatalf("could not restore save state: %v", err)
    }

    if other.CPU.A != 0x42 {
        test.Fatalf("expected restored A register to be 0x42 but was 0x%02x", other.CPU.A)
    }
    if other.ram[0x10] != 0x99 {
        test.Fatalf("expected restored RAM byte to be 0x99 but was 0x%02x", other.ram[0x10])
    }
}

func TestSaveStateRejectsVersionMismatch(test *testing.T) {
    machine := makeTestMachine(test)
    state := machine.Capture()
    state.Version = saveStateVersion + 1

    err := machine.Restore(state)
    if err == nil {
        test.Fatalf("expected a version mismatch to be rejected")
    }
}

func TestSaveStateRejectsMapperKindMismatch(test *testing.T) {
    machine := makeTestMachine(test)
    state := machine.Capture()
    state.Mapper.Kind = "uxrom"

    err := machine.Restore(state)
    if err == nil {
        test.Fatalf("expected a mapper kind mismatch to be rejected")
    }
}

func TestSaveStateFileRoundTrip(test *testing.T) {
    machine := makeTestMachine(test)
    machine.CPU.X = 0x21

    path := test.TempDir() + "/state.sav"
    err := machine.SaveToFile(path)
    if err != nil {
        test.Fatalf("could not save state to file: %v", err)
    }

    other := makeTestMachine(test)
    err = other.LoadFromFile(path)
    if err != nil {
        test.Fatalf("could not load state from file: %v", err)
    }

    if other.CPU.X != 0x21 {
        test.Fatalf("expected restored X register to be 0x21 but was 0x%02x", other.CPU.X)
    }
}

package lib

import "testing"

func TestMakeMapperRejectsUnsupportedNumber(test *testing.T) {
    _, err := MakeMapper(99, make([]byte, 0x4000), nil, MirrorHorizontal, "game.nes")
    if err == nil {
        test.Fatalf("expected an error for an unsupported mapper number")
    }

    loadErr, ok := err.(*LoadError)
    if !ok {
        test.Fatalf("expected a *LoadError but got %T: %v", err, err)
    }
    if loadErr.Path != "game.nes" {
        test.Fatalf("expected the LoadError to carry the rom path, got %q", loadErr.Path)
    }
}

func TestMapperNROMFixed32K(test *testing.T) {
    prg := make([]byte, 0x8000)
    prg[0] = 0xaa
    prg[0x7fff] = 0xbb

    mapper := newMapperNROM(prg, nil, MirrorHorizontal)

    if mapper.CPURead(0x8000) != 0xaa {
        test.Fatalf("expected $8000 to read the first PRG byte")
    }
    if mapper.CPURead(0xffff) != 0xbb {
        test.Fatalf("expected $FFFF to read the last PRG byte")
    }
}

func TestMapperNROMMirrors16KOverBothHalves(test *testing.T) {
    prg := make([]byte, 0x4000)
    prg[0x10] = 0x42

    mapper := newMapperNROM(prg, nil, MirrorHorizontal)

    if mapper.CPURead(0x8010) != 0x42 {
        test.Fatalf("expected $8010 to read PRG offset 0x10")
    }
    if mapper.CPURead(0xc010) != 0x42 {
        test.Fatalf("expected a 16K cartridge to mirror into the upper half at $C010")
    }
}

func TestMapperNROMChrRAMWhenCartridgeShipsNone(test *testing.T) {
    mapper := newMapperNROM(make([]byte, 0x4000), nil, MirrorHorizontal)

    mapper.PPUWrite(0x0010, 0x77)
    if mapper.PPURead(0x0010) != 0x77 {
        test.Fatalf("expected CHR RAM fallback to be writable and readable")
    }
}

func TestMapperUXROMBankSwitch(test *testing.T) {
    prg := make([]byte, 0x4000*4)
    for bank := 0; bank < 4; bank++ {
        prg[bank*0x4000] = byte(bank)
    }

    mapper := newMapperUXROM(prg, nil, MirrorHorizontal)

    mapper.CPUWrite(0x8000, 2, 0)
    if mapper.CPURead(0x8000) != 2 {
        test.Fatalf("expected switching to bank 2 to make $8000 read 2, got %v", mapper.CPURead(0x8000))
    }

    lastBank := byte(3)
    if mapper.CPURead(0xc000) != lastBank {
        test.Fatalf("expected $C000 to always read the cartridge's last bank (%v), got %v", lastBank, mapper.CPURead(0xc000))
    }
}

// writeMMC1Register drives the 5-write shift protocol, advancing cycle by
// one for every individual write so each lands on a distinct CPU cycle -
// matching what the real bus guarantees and what mapperMMC1.CPUWrite now
// requires to accept more than one write.
func writeMMC1Register(mapper *mapperMMC1, address uint16, value byte, cycle *uint64) {
    for i := 0; i < 5; i++ {
        mapper.CPUWrite(address, (value>>i)&0x1, *cycle)
        *cycle++
    }
}

func TestMapperMMC1ShiftRegisterCommitsOnFifthWrite(test *testing.T) {
    prg := make([]byte, 0x4000*4)
    mapper := newMapperMMC1(prg, nil, MirrorHorizontal)

    cycle := uint64(0)
    writeMMC1Register(mapper, 0x8000, 0x08, &cycle) // control bits 2-3 = 0b10: PRG mode 2

    if mapper.prgBankMode() != 2 {
        test.Fatalf("expected control register write to select PRG mode 2, got %v", mapper.prgBankMode())
    }
}

func TestMapperMMC1ResetBitForcesPRGMode3(test *testing.T) {
    prg := make([]byte, 0x4000*4)
    mapper := newMapperMMC1(prg, nil, MirrorHorizontal)

    cycle := uint64(0)
    writeMMC1Register(mapper, 0x8000, 0x00, &cycle) // PRG mode 0 (32K)
    if mapper.prgBankMode() == 3 {
        test.Fatalf("test setup should have left PRG mode != 3")
    }

    mapper.CPUWrite(0x8000, 0x80, cycle) // reset bit
    if mapper.prgBankMode() != 3 {
        test.Fatalf("expected the reset bit to force PRG mode 3, got %v", mapper.prgBankMode())
    }
}

func TestMapperMMC1MirroringFollowsControlBits(test *testing.T) {
    prg := make([]byte, 0x4000*2)
    mapper := newMapperMMC1(prg, nil, MirrorHorizontal)

    cycle := uint64(0)
    writeMMC1Register(mapper, 0x8000, 0x02, &cycle) // low 2 bits = 10 -> vertical
    if mapper.Mirroring() != MirrorVertical {
        test.Fatalf("expected control bits 0b10 to select vertical mirroring, got %v", mapper.Mirroring())
    }
}

func TestMapperMMC1SwitchableBankSelection(test *testing.T) {
    prg := make([]byte, 0x4000*4)
    for bank := 0; bank < 4; bank++ {
        prg[bank*0x4000] = byte(0x10 + bank)
    }

    mapper := newMapperMMC1(prg, nil, MirrorHorizontal)
    cycle := uint64(0)
    writeMMC1Register(mapper, 0x8000, 0x0f, &cycle) // PRG mode 3: switchable first bank, fixed last
    writeMMC1Register(mapper, 0xe000, 0x02, &cycle) // select PRG bank 2

    if mapper.CPURead(0x8000) != 0x12 {
        test.Fatalf("expected $8000 to read from switched-in bank 2 (0x12), got 0x%02x", mapper.CPURead(0x8000))
    }
}

func TestMapperMMC1SecondWriteOnSameCycleIsIgnored(test *testing.T) {
    prg := make([]byte, 0x4000*4)
    mapper := newMapperMMC1(prg, nil, MirrorHorizontal)

    // Four good writes of a 0b1000 payload, then two writes contending for
    // the same fifth cycle: the first (bit 0, would commit control=0x08,
    // PRG mode 2) should win, the second (bit 1) should be dropped outright
    // rather than starting a new shift sequence.
    const collidingCycle = 4
    mapper.CPUWrite(0x8000, 0, 0)
    mapper.CPUWrite(0x8000, 0, 1)
    mapper.CPUWrite(0x8000, 0, 2)
    mapper.CPUWrite(0x8000, 1, 3)
    mapper.CPUWrite(0x8000, 0, collidingCycle)
    mapper.CPUWrite(0x8000, 1, collidingCycle)

    if mapper.prgBankMode() != 2 {
        test.Fatalf("expected only the first write on the colliding cycle to commit the shift register, got PRG mode %v", mapper.prgBankMode())
    }
}

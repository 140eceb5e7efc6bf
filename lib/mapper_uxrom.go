package lib

// mapperUXROM is iNES mapper 2: a switchable 16KB bank at $8000-$BFFF and
// the cartridge's last 16KB bank fixed at $C000-$FFFF. CHR is always RAM.
type mapperUXROM struct {
    prg       []byte
    chr       []byte
    ram       prgRAM
    mirroring Mirroring
    bank      byte
}

func newMapperUXROM(prg []byte, chr []byte, mirroring Mirroring) *mapperUXROM {
    return &mapperUXROM{
        prg:       prg,
        chr:       makeCHRSpace(chr),
        mirroring: mirroring,
    }
}

func (m *mapperUXROM) lastBankOffset() int {
    return len(m.prg) - 0x4000
}

func (m *mapperUXROM) CPURead(address uint16) byte {
    switch {
    case address >= 0x6000 && address < 0x8000:
        return m.ram.read(address)
    case address >= 0x8000 && address < 0xc000:
        offset := int(m.bank)*0x4000 + int(address-0x8000)
        return m.prg[offset%len(m.prg)]
    case address >= 0xc000:
        offset := m.lastBankOffset() + int(address-0xc000)
        return m.prg[offset]
    }
    return 0
}

func (m *mapperUXROM) CPUWrite(address uint16, value byte, cycle uint64) {
    switch {
    case address >= 0x6000 && address < 0x8000:
        m.ram.write(address, value)
    case address >= 0x8000:
        // UXROM decodes only the low bits needed to select a bank; bus
        // conflicts are not modeled.
        m.bank = value & 0x0f
    }
}

func (m *mapperUXROM) PPURead(address uint16) byte {
    return m.chr[address&0x1fff]
}

func (m *mapperUXROM) PPUWrite(address uint16, value byte) {
    m.chr[address&0x1fff] = value
}

func (m *mapperUXROM) Mirroring() Mirroring { return m.mirroring }
func (m *mapperUXROM) Tick()                {}
func (m *mapperUXROM) IRQAsserted() bool    { return false }

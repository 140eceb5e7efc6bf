package lib

// executeIllegal handles every opcode not covered by the documented
// instruction set in cpu_ops.go: the handful of "faithful alias" illegal
// opcodes that compose cleanly from existing documented micro-ops, the
// various multi-byte NOP encodings, and the KIL/unstable-illegal opcodes
// that fall back to the lenient/strict RuntimeError mechanism.
func (cpu *CPU) executeIllegal(bus CPUBus, opcode byte, strict bool) error {
    switch opcode {

    // ---- SLO: ASL then ORA ----
    case 0x07:
        cpu.rmwCombine(bus, cpu.addrZeroPage(bus), cpu.opASL, cpu.opORA)
    case 0x17:
        cpu.rmwCombine(bus, cpu.addrZeroPageX(bus), cpu.opASL, cpu.opORA)
    case 0x03:
        cpu.rmwCombine(bus, cpu.addrIndirectX(bus), cpu.opASL, cpu.opORA)
    case 0x13:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwCombine(bus, addr, cpu.opASL, cpu.opORA)
    case 0x0f:
        cpu.rmwCombine(bus, cpu.addrAbsolute(bus), cpu.opASL, cpu.opORA)
    case 0x1f:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwCombine(bus, addr, cpu.opASL, cpu.opORA)
    case 0x1b:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwCombine(bus, addr, cpu.opASL, cpu.opORA)

    // ---- RLA: ROL then AND ----
    case 0x27:
        cpu.rmwCombine(bus, cpu.addrZeroPage(bus), cpu.opROL, cpu.opAND)
    case 0x37:
        cpu.rmwCombine(bus, cpu.addrZeroPageX(bus), cpu.opROL, cpu.opAND)
    case 0x23:
        cpu.rmwCombine(bus, cpu.addrIndirectX(bus), cpu.opROL, cpu.opAND)
    case 0x33:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwCombine(bus, addr, cpu.opROL, cpu.opAND)
    case 0x2f:
        cpu.rmwCombine(bus, cpu.addrAbsolute(bus), cpu.opROL, cpu.opAND)
    case 0x3f:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwCombine(bus, addr, cpu.opROL, cpu.opAND)
    case 0x3b:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwCombine(bus, addr, cpu.opROL, cpu.opAND)

    // ---- SRE: LSR then EOR ----
    case 0x47:
        cpu.rmwCombine(bus, cpu.addrZeroPage(bus), cpu.opLSR, cpu.opEOR)
    case 0x57:
        cpu.rmwCombine(bus, cpu.addrZeroPageX(bus), cpu.opLSR, cpu.opEOR)
    case 0x43:
        cpu.rmwCombine(bus, cpu.addrIndirectX(bus), cpu.opLSR, cpu.opEOR)
    case 0x53:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwCombine(bus, addr, cpu.opLSR, cpu.opEOR)
    case 0x4f:
        cpu.rmwCombine(bus, cpu.addrAbsolute(bus), cpu.opLSR, cpu.opEOR)
    case 0x5f:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwCombine(bus, addr, cpu.opLSR, cpu.opEOR)
    case 0x5b:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwCombine(bus, addr, cpu.opLSR, cpu.opEOR)

    // ---- RRA: ROR then ADC ----
    case 0x67:
        cpu.rmwCombine(bus, cpu.addrZeroPage(bus), cpu.opROR, cpu.opADC)
    case 0x77:
        cpu.rmwCombine(bus, cpu.addrZeroPageX(bus), cpu.opROR, cpu.opADC)
    case 0x63:
        cpu.rmwCombine(bus, cpu.addrIndirectX(bus), cpu.opROR, cpu.opADC)
    case 0x73:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwCombine(bus, addr, cpu.opROR, cpu.opADC)
    case 0x6f:
        cpu.rmwCombine(bus, cpu.addrAbsolute(bus), cpu.opROR, cpu.opADC)
    case 0x7f:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwCombine(bus, addr, cpu.opROR, cpu.opADC)
    case 0x7b:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwCombine(bus, addr, cpu.opROR, cpu.opADC)

    // ---- DCP: DEC then CMP ----
    case 0xc7:
        cpu.rmwCompare(bus, cpu.addrZeroPage(bus))
    case 0xd7:
        cpu.rmwCompare(bus, cpu.addrZeroPageX(bus))
    case 0xc3:
        cpu.rmwCompare(bus, cpu.addrIndirectX(bus))
    case 0xd3:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwCompare(bus, addr)
    case 0xcf:
        cpu.rmwCompare(bus, cpu.addrAbsolute(bus))
    case 0xdf:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwCompare(bus, addr)
    case 0xdb:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwCompare(bus, addr)

    // ---- ISC/ISB: INC then SBC ----
    case 0xe7:
        cpu.rmwIncSbc(bus, cpu.addrZeroPage(bus))
    case 0xf7:
        cpu.rmwIncSbc(bus, cpu.addrZeroPageX(bus))
    case 0xe3:
        cpu.rmwIncSbc(bus, cpu.addrIndirectX(bus))
    case 0xf3:
        addr, _ := cpu.addrIndirectY(bus)
        cpu.rmwIncSbc(bus, addr)
    case 0xef:
        cpu.rmwIncSbc(bus, cpu.addrAbsolute(bus))
    case 0xff:
        addr, _ := cpu.addrAbsoluteX(bus)
        cpu.rmwIncSbc(bus, addr)
    case 0xfb:
        addr, _ := cpu.addrAbsoluteY(bus)
        cpu.rmwIncSbc(bus, addr)

    // ---- LAX: load A and X together ----
    case 0xa7:
        cpu.opLAX(bus.Read(cpu.addrZeroPage(bus)))
    case 0xb7:
        cpu.opLAX(bus.Read(cpu.addrZeroPageY(bus)))
    case 0xa3:
        cpu.opLAX(bus.Read(cpu.addrIndirectX(bus)))
    case 0xb3:
        addr, crossed := cpu.addrIndirectY(bus)
        cpu.opLAX(bus.Read(addr))
        cpu.extraCycle(crossed)
    case 0xaf:
        cpu.opLAX(bus.Read(cpu.addrAbsolute(bus)))
    case 0xbf:
        addr, crossed := cpu.addrAbsoluteY(bus)
        cpu.opLAX(bus.Read(addr))
        cpu.extraCycle(crossed)

    // ---- SAX: store A&X ----
    case 0x87:
        bus.Write(cpu.addrZeroPage(bus), cpu.A&cpu.X)
    case 0x97:
        bus.Write(cpu.addrZeroPageY(bus), cpu.A&cpu.X)
    case 0x83:
        bus.Write(cpu.addrIndirectX(bus), cpu.A&cpu.X)
    case 0x8f:
        bus.Write(cpu.addrAbsolute(bus), cpu.A&cpu.X)

    // ---- ANC: AND immediate, carry = bit 7 of result ----
    case 0x0b, 0x2b:
        value := cpu.fetch(bus)
        cpu.A &= value
        cpu.setZN(cpu.A)
        cpu.setFlag(FlagCarry, cpu.A&0x80 != 0)

    // ---- ALR/ASR: AND immediate then LSR A ----
    case 0x4b:
        value := cpu.fetch(bus)
        cpu.A &= value
        cpu.A = cpu.opLSR(cpu.A)

    // ---- ARR: AND immediate then ROR A, with its own flag quirks ----
    case 0x6b:
        value := cpu.fetch(bus)
        cpu.A &= value
        cpu.A = cpu.opROR(cpu.A)
        bit6 := cpu.A&0x40 != 0
        bit5 := cpu.A&0x20 != 0
        cpu.setFlag(FlagCarry, bit6)
        cpu.setFlag(FlagOverflow, bit6 != bit5)

    // ---- AXS/SBX: X = (A&X) - immediate, carry = no borrow ----
    case 0xcb:
        value := cpu.fetch(bus)
        result := (cpu.A & cpu.X) - value
        cpu.setFlag(FlagCarry, (cpu.A&cpu.X) >= value)
        cpu.X = result
        cpu.setZN(cpu.X)

    // ---- multi-byte/implied NOPs ----
    case 0x1a, 0x3a, 0x5a, 0x7a, 0xda, 0xfa:
        // single-byte NOP
    case 0x80, 0x82, 0x89, 0xc2, 0xe2:
        cpu.fetch(bus)
    case 0x04, 0x44, 0x64:
        cpu.addrZeroPage(bus)
    case 0x14, 0x34, 0x54, 0x74, 0xd4, 0xf4:
        cpu.addrZeroPageX(bus)
    case 0x0c:
        cpu.addrAbsolute(bus)
    case 0x1c, 0x3c, 0x5c, 0x7c, 0xdc, 0xfc:
        _, crossed := cpu.addrAbsoluteX(bus)
        cpu.extraCycle(crossed)

    default:
        return cpu.unmodeled(opcode, strict)
    }

    return nil
}

func (cpu *CPU) opLAX(value byte) {
    cpu.A = value
    cpu.X = value
    cpu.setZN(value)
}

// rmwCombine performs a read-modify-write through modify, then folds the
// written-back value into the accumulator through combine - the shape
// shared by SLO/RLA/SRE/RRA.
func (cpu *CPU) rmwCombine(bus CPUBus, address uint16, modify func(byte) byte, combine func(byte)) {
    value := modify(bus.Read(address))
    bus.Write(address, value)
    combine(value)
}

func (cpu *CPU) rmwCompare(bus CPUBus, address uint16) {
    value := cpu.dec(bus.Read(address))
    bus.Write(address, value)
    cpu.opCompare(cpu.A, value)
}

func (cpu *CPU) rmwIncSbc(bus CPUBus, address uint16) {
    value := cpu.inc(bus.Read(address))
    bus.Write(address, value)
    cpu.opSBC(value)
}

// unmodeled is reached by true KIL/JAM opcode slots and the unstable
// illegal opcodes (XAA, LAS, TAS, AHX/SHA, SHX, SHY) whose output depends
// on hardware bus-conflict behavior this interpreter doesn't model. In
// strict mode it halts the machine with a RuntimeError; in lenient mode it
// logs once per opcode and substitutes a 2-cycle NOP.
func (cpu *CPU) unmodeled(opcode byte, strict bool) error {
    if strict {
        return &RuntimeError{PC: cpu.PC - 1, Opcode: opcode, Reason: "unimplemented or unstable illegal opcode"}
    }
    warnOnce(opcode)
    return nil
}

var warnedOpcodes = map[byte]bool{}

func warnOnce(opcode byte) {
    if warnedOpcodes[opcode] {
        return
    }
    warnedOpcodes[opcode] = true
    logLenientOpcode(opcode)
}

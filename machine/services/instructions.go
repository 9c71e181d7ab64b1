package services

import (
	"encoding/binary"
	"math"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/machine/models"
)

// OneInstruction ejecuta la instrucción apuntada por PCReg. Si la instrucción falla (fallo de
// página, syscall, etc.) los PCs no avanzan: el manejador decide si reintentar o avanzar.
func (m *Machine) OneInstruction() error {
	pc := int(m.registers[models.PCReg])

	raw, exception := m.ReadMem(pc, models.InstructionWidth)
	if exception != models.NoException {
		return m.RaiseException(exception, pc)
	}

	word := uint32(raw)
	op := models.Opcode(word & 0xff)
	rd := int(word >> 8 & 0xff)
	rs := int(word >> 16 & 0xff)
	imm := int32(int16(word >> 16))
	offset := int32(int8(word >> 24))

	if rd >= models.NumGPRegs || (usesSourceRegister(op) && rs >= models.NumGPRegs) {
		return m.RaiseException(models.IllegalInstrException, pc)
	}

	nextPC := m.registers[models.NextPCReg]
	pcAfter := nextPC + models.InstructionWidth

	switch op {
	case models.OpNop:
	case models.OpLoadImm:
		m.registers[rd] = imm
	case models.OpLoadUpper:
		m.registers[rd] = imm << 16
	case models.OpAddImm:
		sum, overflow := add(m.registers[rd], imm)
		if overflow {
			return m.RaiseException(models.OverflowException, pc)
		}
		m.registers[rd] = sum
	case models.OpMove:
		m.registers[rd] = m.registers[rs]
	case models.OpAdd:
		sum, overflow := add(m.registers[rd], m.registers[rs])
		if overflow {
			return m.RaiseException(models.OverflowException, pc)
		}
		m.registers[rd] = sum
	case models.OpSub:
		diff := int64(m.registers[rd]) - int64(m.registers[rs])
		if diff > math.MaxInt32 || diff < math.MinInt32 {
			return m.RaiseException(models.OverflowException, pc)
		}
		m.registers[rd] = int32(diff)
	case models.OpLoadWord, models.OpLoadByte:
		address := int(m.registers[rs] + offset)
		size := 4
		if op == models.OpLoadByte {
			size = 1
		}
		value, exception := m.ReadMem(address, size)
		if exception != models.NoException {
			return m.RaiseException(exception, address)
		}
		m.registers[rd] = value
	case models.OpStoreWord, models.OpStoreByte:
		address := int(m.registers[rs] + offset)
		size := 4
		if op == models.OpStoreByte {
			size = 1
		}
		if exception := m.WriteMem(address, size, m.registers[rd]); exception != models.NoException {
			return m.RaiseException(exception, address)
		}
	case models.OpBeqz, models.OpBnez:
		isZero := m.registers[rd] == 0
		if isZero == (op == models.OpBeqz) {
			nextPC = int32(pc) + imm*models.InstructionWidth
			pcAfter = nextPC + models.InstructionWidth
		}
	case models.OpJump:
		nextPC = int32(pc) + imm*models.InstructionWidth
		pcAfter = nextPC + models.InstructionWidth
	case models.OpSyscall:
		return m.RaiseException(models.SyscallException, 0)
	default:
		return m.RaiseException(models.IllegalInstrException, pc)
	}

	m.registers[models.PrevPCReg] = int32(pc)
	m.registers[models.PCReg] = nextPC
	m.registers[models.NextPCReg] = pcAfter
	return nil
}

func usesSourceRegister(op models.Opcode) bool {
	switch op {
	case models.OpMove, models.OpAdd, models.OpSub,
		models.OpLoadWord, models.OpStoreWord, models.OpLoadByte, models.OpStoreByte:
		return true
	}
	return false
}

func add(a, b int32) (int32, bool) {
	sum := int64(a) + int64(b)
	return int32(sum), sum > math.MaxInt32 || sum < math.MinInt32
}

// EncodeImm arma una instrucción con inmediato de 16 bits (li, lui, addi, beqz, bnez, j).
func EncodeImm(op models.Opcode, rd int, imm int) uint32 {
	return uint32(op) | uint32(rd&0xff)<<8 | uint32(uint16(int16(imm)))<<16
}

// EncodeReg arma una instrucción registro-registro o de memoria (move, add, sub, lw, sw, lb, sb).
func EncodeReg(op models.Opcode, rd int, rs int, offset int) uint32 {
	return uint32(op) | uint32(rd&0xff)<<8 | uint32(rs&0xff)<<16 | uint32(uint8(int8(offset)))<<24
}

// Assemble convierte las instrucciones a bytes en el orden de la memoria simulada.
func Assemble(words ...uint32) []byte {
	code := make([]byte, len(words)*models.InstructionWidth)
	for i, word := range words {
		binary.LittleEndian.PutUint32(code[i*models.InstructionWidth:], word)
	}
	return code
}

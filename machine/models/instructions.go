package models

// Opcode identifica una instrucción de la máquina simulada.
//
// Formato de palabra (little endian):
//
//	byte 0: opcode
//	byte 1: rd
//	byte 2-3: inmediato de 16 bits con signo, o bien byte 2: rs y byte 3: desplazamiento de 8 bits con signo
type Opcode byte

const (
	OpNop       Opcode = iota
	OpLoadImm          // rd = imm16
	OpLoadUpper        // rd = imm16 << 16
	OpAddImm           // rd = rd + imm16
	OpMove             // rd = rs
	OpAdd              // rd = rd + rs
	OpSub              // rd = rd - rs
	OpLoadWord         // rd = mem32[rs + off8]
	OpStoreWord        // mem32[rs + off8] = rd
	OpLoadByte         // rd = mem8[rs + off8]
	OpStoreByte        // mem8[rs + off8] = rd
	OpBeqz             // si rd == 0: pc += imm16 * InstructionWidth
	OpBnez             // si rd != 0: pc += imm16 * InstructionWidth
	OpJump             // pc += imm16 * InstructionWidth
	OpSyscall          // excepción de syscall
)

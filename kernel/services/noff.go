package services

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/sisoputnfrba/tp-nachos-Los-magiOS/kernel/models"
)

// NoffMagic identifica a los ejecutables en formato NOFF.
const NoffMagic = 0xbadfad

// NoffHeaderSize son los 10 words de 32 bits del encabezado.
const NoffHeaderSize = 40

type Segment struct {
	VirtualAddr int32 `json:"virtual_addr"` // dónde empieza el segmento en el espacio virtual
	InFileAddr  int32 `json:"in_file_addr"` // dónde empieza el segmento en el archivo
	Size        int32 `json:"size"`
}

type NoffHeader struct {
	Magic      int32
	Code       Segment
	InitData   Segment
	UninitData Segment
}

// Executable es un ejecutable abierto. Solo se necesita leer a partir de un offset y cerrarlo.
type Executable interface {
	io.ReaderAt
	io.Closer
}

// FileSystem abre ejecutables por nombre.
type FileSystem interface {
	Open(name string) (Executable, error)
}

// FSLoader abre ejecutables de cualquier fs.FS (os.DirFS en el kernel, fstest.MapFS en los tests).
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Open(name string) (Executable, error) {
	path := strings.TrimPrefix(name, "/")
	file, err := l.FS.Open(path)
	if err != nil {
		return nil, err
	}

	executable, ok := file.(Executable)
	if !ok {
		file.Close()
		return nil, fmt.Errorf("el archivo %s no permite lecturas con offset", name)
	}
	return executable, nil
}

// ReadNoffHeader lee el encabezado del ejecutable. Si el magic solo coincide con los bytes
// invertidos, todo el encabezado se lee en el orden opuesto.
func ReadNoffHeader(executable io.ReaderAt) (NoffHeader, error) {
	raw := make([]byte, NoffHeaderSize)
	if _, err := executable.ReadAt(raw, 0); err != nil && !errors.Is(err, io.EOF) {
		return NoffHeader{}, fmt.Errorf("no se pudo leer el encabezado NOFF: %w", err)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if magic := order.Uint32(raw); magic != NoffMagic {
		if binary.BigEndian.Uint32(raw) != NoffMagic {
			return NoffHeader{}, fmt.Errorf("%w: magic %#x", models.ErrBadNoffMagic, magic)
		}
		order = binary.BigEndian
	}

	words := make([]int32, NoffHeaderSize/4)
	for i := range words {
		words[i] = int32(order.Uint32(raw[i*4:]))
	}

	segment := func(start int) Segment {
		return Segment{VirtualAddr: words[start], InFileAddr: words[start+1], Size: words[start+2]}
	}
	header := NoffHeader{
		Magic:      words[0],
		Code:       segment(1),
		InitData:   segment(4),
		UninitData: segment(7),
	}

	names := []string{"code", "initData", "uninitData"}
	for i, segment := range []Segment{header.Code, header.InitData, header.UninitData} {
		if segment.Size < 0 || segment.VirtualAddr < 0 || segment.InFileAddr < 0 {
			return NoffHeader{}, fmt.Errorf("%w: %s %+v", models.ErrBadNoffSegment, names[i], segment)
		}
	}
	return header, nil
}

// BuildExecutable arma un ejecutable NOFF con el código en la dirección virtual 0 y los datos
// inicializados a continuación.
func BuildExecutable(code []byte, initData []byte, uninitSize int) []byte {
	image := make([]byte, NoffHeaderSize, NoffHeaderSize+len(code)+len(initData))

	words := []uint32{
		NoffMagic,
		0, NoffHeaderSize, uint32(len(code)),
		uint32(len(code)), uint32(NoffHeaderSize + len(code)), uint32(len(initData)),
		uint32(len(code) + len(initData)), 0, uint32(uninitSize),
	}
	for i, word := range words {
		binary.LittleEndian.PutUint32(image[i*4:], word)
	}

	image = append(image, code...)
	return append(image, initData...)
}

// loadedSize es lo que ocupa el programa en memoria sin contar la pila.
func (h NoffHeader) loadedSize() int64 {
	return int64(h.Code.Size) + int64(h.InitData.Size) + int64(h.UninitData.Size)
}

// readSegmentPage copia en frame la parte del segmento que cae en la página que empieza en pageStart.
func readSegmentPage(executable io.ReaderAt, segment Segment, pageStart int, frame []byte) error {
	start := max(pageStart, int(segment.VirtualAddr))
	end := min(pageStart+len(frame), int(segment.VirtualAddr)+int(segment.Size))
	if segment.Size <= 0 || start >= end {
		return nil
	}

	offset := int64(segment.InFileAddr) + int64(start-int(segment.VirtualAddr))
	if _, err := executable.ReadAt(frame[start-pageStart:end-pageStart], offset); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

package clrmeta

import (
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
	"github.com/smith-xyz/bindgraph/pkg/peinfo"
)

// ErrNotManaged is returned when Read is pointed at a PE image with no CLR
// header — a plain native binary.
var ErrNotManaged = errors.New("clrmeta: not a managed image")

// AssemblyRef is a decoded row of the AssemblyRef table: a reference to
// another managed assembly by name and version.
type AssemblyRef struct {
	Name    string
	Version moduleversion.Version
}

// PInvoke is a decoded ImplMap row paired with its target ModuleRef: the
// platform-invoke declaration of one managed method into one native
// library.
type PInvoke struct {
	MethodName string
	ModuleName string
}

// Info is the bounded set of CLR metadata facts the managed inspector
// needs out of a whole assembly.
type Info struct {
	ModuleName      string
	Mvid            string
	AssemblyName    string
	AssemblyVersion moduleversion.Version
	AssemblyRefs    []AssemblyRef
	ModuleRefs      []string
	PInvokes        []PInvoke
	TargetFramework string // raw value of TargetFrameworkAttribute, if present
}

// Read opens the file at path and decodes its CLR metadata. It returns
// ErrNotManaged if the PE image carries no CLR header.
func Read(path string) (*Info, error) {
	hdr, err := peinfo.Read(path)
	if err != nil {
		return nil, err
	}
	if !hdr.IsManaged() {
		return nil, ErrNotManaged
	}

	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clrmeta: %w", err)
	}
	defer f.Close()

	root, err := peinfo.ReadSectionData(f, hdr.MetadataRVA, hdr.MetadataSize)
	if err != nil {
		return nil, fmt.Errorf("clrmeta: reading metadata root: %w", err)
	}

	streams, err := parseMetadataRoot(root)
	if err != nil {
		return nil, err
	}

	tildeName := "#~"
	tilde, ok := streams[tildeName]
	if !ok {
		tilde, ok = streams["#-"]
	}
	if !ok {
		return nil, fmt.Errorf("clrmeta: no #~ stream present")
	}

	tables, err := parseTables(tilde, streams["#Strings"], streams["#GUID"], streams["#Blob"])
	if err != nil {
		return nil, err
	}

	return extractInfo(tables), nil
}

type streamRange struct {
	offset uint32
	size   uint32
}

// parseMetadataRoot decodes the metadata root header (ECMA-335 II.24.2.1)
// and returns each named stream's raw bytes.
func parseMetadataRoot(root []byte) (map[string][]byte, error) {
	if len(root) < 20 || !(root[0] == 'B' && root[1] == 'S' && root[2] == 'J' && root[3] == 'B') {
		return nil, fmt.Errorf("clrmeta: bad metadata root signature")
	}
	off := 4 + 2 + 2 + 4 // signature, major, minor, reserved
	if off+4 > len(root) {
		return nil, fmt.Errorf("clrmeta: truncated metadata root")
	}
	verLen := int(binary.LittleEndian.Uint32(root[off:]))
	off += 4
	off += align4(verLen)
	if off+4 > len(root) {
		return nil, fmt.Errorf("clrmeta: truncated metadata root version")
	}
	off += 2 // flags
	streamCount := int(binary.LittleEndian.Uint16(root[off:]))
	off += 2

	streams := make(map[string][]byte, streamCount)
	for i := 0; i < streamCount; i++ {
		if off+8 > len(root) {
			return nil, fmt.Errorf("clrmeta: truncated stream header")
		}
		streamOff := binary.LittleEndian.Uint32(root[off:])
		streamSize := binary.LittleEndian.Uint32(root[off+4:])
		off += 8
		nameStart := off
		for off < len(root) && root[off] != 0 {
			off++
		}
		if off >= len(root) {
			return nil, fmt.Errorf("clrmeta: unterminated stream name")
		}
		name := string(root[nameStart:off])
		off++ // null terminator
		off = align4From(nameStart, off-nameStart) + nameStart

		end := int(streamOff) + int(streamSize)
		if end > len(root) || int(streamOff) < 0 {
			return nil, fmt.Errorf("clrmeta: stream %q out of bounds", name)
		}
		streams[name] = root[streamOff:end]
	}
	return streams, nil
}

func align4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

func align4From(base, length int) int {
	return align4(length)
}

// rawTables is the decoded row set of the #~ logical tables stream, with
// every column stored as a raw uint32 (heap index, simple index, or coded
// index) regardless of its logical type; accessors in extract.go interpret
// them against the heaps.
type rawTables struct {
	rows       map[tableID][][]uint32
	rowCounts  map[tableID]uint32
	strings    []byte
	guids      []byte
	blobs      []byte
}

func parseTables(tilde, strings, guids, blobs []byte) (*rawTables, error) {
	if len(tilde) < 24 {
		return nil, fmt.Errorf("clrmeta: truncated #~ stream")
	}
	heapSizes := tilde[6]
	valid := binary.LittleEndian.Uint64(tilde[8:])
	// Sorted bitmask at tilde[16:24] is not needed by this reader.
	off := 24

	rowCounts := make(map[tableID]uint32)
	present := []tableID{}
	for id := tableID(0); id <= maxTableID; id++ {
		if valid&(uint64(1)<<uint(id)) != 0 {
			present = append(present, id)
		}
	}
	for _, id := range present {
		if off+4 > len(tilde) {
			return nil, fmt.Errorf("clrmeta: truncated row count list")
		}
		rowCounts[id] = binary.LittleEndian.Uint32(tilde[off:])
		off += 4
	}

	rt := &rawTables{
		rows:      make(map[tableID][][]uint32),
		rowCounts: rowCounts,
		strings:   strings,
		guids:     guids,
		blobs:     blobs,
	}

	for _, id := range present {
		schema, ok := tableSchema[id]
		if !ok {
			return nil, fmt.Errorf("clrmeta: unknown table id %#x present", id)
		}
		colSizes := make([]int, len(schema))
		rowSize := 0
		for i, col := range schema {
			sz := columnSize(col, rowCounts, heapSizes)
			colSizes[i] = sz
			rowSize += sz
		}

		count := int(rowCounts[id])
		rows := make([][]uint32, count)
		for r := 0; r < count; r++ {
			if off+rowSize > len(tilde) {
				return nil, fmt.Errorf("clrmeta: truncated table %#x row %d", id, r)
			}
			row := make([]uint32, len(schema))
			pos := off
			for i, sz := range colSizes {
				if sz == 2 {
					row[i] = uint32(binary.LittleEndian.Uint16(tilde[pos:]))
				} else {
					row[i] = binary.LittleEndian.Uint32(tilde[pos:])
				}
				pos += sz
			}
			rows[r] = row
			off += rowSize
		}
		rt.rows[id] = rows
	}

	return rt, nil
}

func columnSize(col column, rowCounts map[tableID]uint32, heapSizes byte) int {
	switch col.kind {
	case colU2:
		return 2
	case colU4:
		return 4
	case colStrHeap:
		return heapIndexSize(heapSizes, 0)
	case colGuidHeap:
		return heapIndexSize(heapSizes, 1)
	case colBlobHeap:
		return heapIndexSize(heapSizes, 2)
	case colSimple:
		if rowCounts[col.target] > 0xFFFF {
			return 4
		}
		return 2
	case colCoded:
		bits := codedTagBits(col.coded)
		var maxRows uint32
		for _, t := range codedTargets[col.coded] {
			if rowCounts[t] > maxRows {
				maxRows = rowCounts[t]
			}
		}
		if maxRows >= uint32(1)<<(16-bits) {
			return 4
		}
		return 2
	default:
		return 4
	}
}

func heapIndexSize(heapSizes byte, bit int) int {
	if heapSizes&(1<<uint(bit)) != 0 {
		return 4
	}
	return 2
}

func decodeCoded(coded codedKind, raw uint32) (tableID, uint32) {
	bits := codedTagBits(coded)
	mask := uint32(1)<<bits - 1
	tag := raw & mask
	index := raw >> bits
	targets := codedTargets[coded]
	if int(tag) >= len(targets) {
		return tblModule, 0
	}
	return targets[tag], index
}

func stringAt(heap []byte, index uint32) string {
	if heap == nil || int(index) >= len(heap) {
		return ""
	}
	end := int(index)
	for end < len(heap) && heap[end] != 0 {
		end++
	}
	return string(heap[index:end])
}

func guidAt(heap []byte, index uint32) string {
	if index == 0 {
		return ""
	}
	off := int(index-1) * 16
	if off+16 > len(heap) {
		return ""
	}
	g := heap[off : off+16]
	return fmt.Sprintf("%08X-%04X-%04X-%04X-%012X",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		binary.BigEndian.Uint16(g[8:10]),
		g[10:16])
}

func blobAt(heap []byte, index uint32) []byte {
	if heap == nil || int(index) >= len(heap) {
		return nil
	}
	b0 := heap[index]
	var length, headerLen int
	switch {
	case b0&0x80 == 0:
		length = int(b0)
		headerLen = 1
	case b0&0xC0 == 0x80:
		if int(index)+1 >= len(heap) {
			return nil
		}
		length = int(b0&0x3F)<<8 | int(heap[index+1])
		headerLen = 2
	case b0&0xE0 == 0xC0:
		if int(index)+3 >= len(heap) {
			return nil
		}
		length = int(b0&0x1F)<<24 | int(heap[index+1])<<16 | int(heap[index+2])<<8 | int(heap[index+3])
		headerLen = 4
	default:
		return nil
	}
	start := int(index) + headerLen
	end := start + length
	if end > len(heap) {
		return nil
	}
	return heap[start:end]
}

// Package peinfo reads the small slice of a PE (Portable Executable) file
// header that both the managed and native inspectors need: machine type
// and image characteristics used to derive platform (spec §4.2), and the
// COM descriptor data directory used to locate CLR metadata for managed
// images (spec §4.2, delegated to pkg/clrmeta).
//
// Deep binary-format decoding is explicitly out of scope per spec §1
// ("any specific binary-format decoding library... specify only boundary
// contracts"); this package leans on the standard library's debug/pe for
// the structural PE reading it does perform, since no third-party PE/COFF
// parser is present anywhere in the retrieved corpus and debug/pe is the
// natural, idiomatic choice a Go author would reach for.
package peinfo

import (
	"debug/pe"
	"fmt"

	"github.com/smith-xyz/bindgraph/pkg/moduledata"
)

// Header carries the subset of PE header fields the inspectors need.
type Header struct {
	Machine          uint16
	Is32BitMachine   bool // IMAGE_FILE_32BIT_MACHINE characteristic
	IsDLL            bool
	ILOnly           bool // CLR flag COMIMAGE_FLAGS_ILONLY
	Prefer32Bit      bool // CLR flag COMIMAGE_FLAGS_32BITPREFERRED
	Required32Bit    bool // CLR flag COMIMAGE_FLAGS_32BITREQUIRED
	IsPE32Plus       bool
	HasCLRHeader     bool
	CLRHeaderRVA     uint32
	CLRHeaderSize    uint32
	MetadataRVA      uint32
	MetadataSize     uint32
}

// imageComDescriptor mirrors IMAGE_COR20_HEADER (ECMA-335 II.25.3.3),
// truncated to the fields this package needs.
type imageComDescriptor struct {
	CB                 uint32
	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16
	MetaDataRVA        uint32
	MetaDataSize       uint32
	Flags              uint32
}

const (
	comImageFlagsILOnly        = 0x00000001
	comImageFlags32BitRequired = 0x00000002
	comImageFlags32BitPreferred = 0x00020000

	imageFileMachineI386  = 0x014c
	imageFileMachineAMD64 = 0x8664

	imageFile32BitMachine = 0x0100
	imageFileDLL          = 0x2000

	comDescriptorDataDirectoryIndex = 14
)

// Read parses the PE headers of the file at path and returns a Header.
func Read(path string) (*Header, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, fmt.Errorf("peinfo: %w", err)
	}
	defer f.Close()

	h := &Header{
		Machine:        f.FileHeader.Machine,
		Is32BitMachine: f.FileHeader.Characteristics&imageFile32BitMachine != 0,
		IsDLL:          f.FileHeader.Characteristics&imageFileDLL != 0,
	}

	var dataDirs []pe.DataDirectory
	switch opt := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dataDirs = opt.DataDirectory[:]
	case *pe.OptionalHeader64:
		h.IsPE32Plus = true
		dataDirs = opt.DataDirectory[:]
	default:
		return h, nil
	}

	if len(dataDirs) <= comDescriptorDataDirectoryIndex {
		return h, nil
	}
	comDir := dataDirs[comDescriptorDataDirectoryIndex]
	if comDir.VirtualAddress == 0 || comDir.Size == 0 {
		return h, nil
	}

	raw, err := readAtRVA(f, comDir.VirtualAddress, comDir.Size)
	if err != nil {
		return h, nil // absence of a readable CLR header just means "not managed"
	}
	if len(raw) < 24 {
		return h, nil
	}

	desc := decodeComDescriptor(raw)
	h.HasCLRHeader = true
	h.CLRHeaderRVA = comDir.VirtualAddress
	h.CLRHeaderSize = comDir.Size
	h.MetadataRVA = desc.MetaDataRVA
	h.MetadataSize = desc.MetaDataSize
	h.ILOnly = desc.Flags&comImageFlagsILOnly != 0
	h.Required32Bit = desc.Flags&comImageFlags32BitRequired != 0
	h.Prefer32Bit = desc.Flags&comImageFlags32BitPreferred != 0

	return h, nil
}

func decodeComDescriptor(raw []byte) imageComDescriptor {
	le32 := func(off int) uint32 {
		return uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
	}
	le16 := func(off int) uint16 {
		return uint16(raw[off]) | uint16(raw[off+1])<<8
	}
	return imageComDescriptor{
		CB:                  le32(0),
		MajorRuntimeVersion: le16(4),
		MinorRuntimeVersion: le16(6),
		MetaDataRVA:         le32(8),
		MetaDataSize:        le32(12),
		Flags:               le32(16),
	}
}

// readAtRVA resolves a relative virtual address against the section table
// and reads size bytes starting there.
func readAtRVA(f *pe.File, rva, size uint32) ([]byte, error) {
	for _, sec := range f.Sections {
		if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.Size {
			offsetInSection := rva - sec.VirtualAddress
			data, err := sec.Data()
			if err != nil {
				return nil, err
			}
			end := offsetInSection + size
			if int(end) > len(data) {
				end = uint32(len(data))
			}
			if int(offsetInSection) > len(data) {
				return nil, fmt.Errorf("peinfo: rva %#x out of section bounds", rva)
			}
			return data[offsetInSection:end], nil
		}
	}
	return nil, fmt.Errorf("peinfo: rva %#x not found in any section", rva)
}

// ReadSectionData reads size bytes at rva; exported for pkg/clrmeta, which
// needs to follow heap offsets inside the metadata root back into the
// section data.
func ReadSectionData(f *pe.File, rva, size uint32) ([]byte, error) {
	return readAtRVA(f, rva, size)
}

// DerivePlatform implements the platform-derivation precedence of spec
// §4.2 for managed images.
func DerivePlatform(h *Header) moduledata.Platform {
	switch {
	case h.ILOnly && h.Machine == imageFileMachineI386 && h.Prefer32Bit:
		return moduledata.PlatformAnyCPUPrefer32
	case h.ILOnly && h.Machine == imageFileMachineI386:
		return moduledata.PlatformAnyCPU
	case h.IsPE32Plus && h.Machine == imageFileMachineAMD64:
		return moduledata.PlatformAMD64
	case h.Required32Bit && h.Machine == imageFileMachineI386:
		return moduledata.PlatformX86
	default:
		return moduledata.PlatformUnknown
	}
}

// IsManaged reports whether the header indicates a CLR-hosted image.
func (h *Header) IsManaged() bool {
	return h.HasCLRHeader
}

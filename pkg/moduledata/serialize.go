package moduledata

import (
	"encoding/binary"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/smith-xyz/bindgraph/pkg/framework"
	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
)

// This file implements the stable positional binary encoding of spec §4.4:
// strings are length-prefixed variable-length-integer UTF-8, enumerations
// are 32-bit little-endian integers matching declaration order, collections
// are preceded by a 32-bit count. The varint codec is
// google.golang.org/protobuf/encoding/protowire's, reused here purely for
// its length-prefix primitive rather than for a protobuf message; no wire
// tags are emitted, so this is not protobuf-compatible on the outside, but
// it borrows a real, well-tested varint implementation already present in
// the dependency graph instead of hand-rolling one.

func appendString(buf []byte, s string) []byte {
	buf = protowire.AppendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendOptString(buf []byte, s *string) []byte {
	if s == nil {
		return appendString(buf, "")
	}
	return appendString(buf, *s)
}

func consumeString(data []byte) (string, []byte, error) {
	n, sz := protowire.ConsumeVarint(data)
	if sz < 0 {
		return "", nil, fmt.Errorf("moduledata: malformed string length prefix")
	}
	data = data[sz:]
	if uint64(len(data)) < n {
		return "", nil, fmt.Errorf("moduledata: truncated string, want %d bytes have %d", n, len(data))
	}
	return string(data[:n]), data[n:], nil
}

func consumeOptString(data []byte) (*string, []byte, error) {
	s, rest, err := consumeString(data)
	if err != nil {
		return nil, nil, err
	}
	if s == "" {
		return nil, rest, nil
	}
	return &s, rest, nil
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func consumeInt32(data []byte) (int32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("moduledata: truncated int32")
	}
	return int32(binary.LittleEndian.Uint32(data[:4])), data[4:], nil
}

func appendCount(buf []byte, n int) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(n))
	return append(buf, tmp[:]...)
}

func consumeCount(data []byte) (int, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("moduledata: truncated count")
	}
	return int(binary.LittleEndian.Uint32(data[:4])), data[4:], nil
}

// Serialize encodes m using the positional binary layout of spec §4.4.
func Serialize(m *ModuleData) []byte {
	var buf []byte
	buf = appendOptString(buf, m.FilePath)
	buf = appendString(buf, m.BinaryName)
	buf = appendOptString(buf, m.FullName)
	buf = appendOptString(buf, m.Version)
	buf = appendString(buf, m.FrameworkID)
	buf = appendInt32(buf, int32(m.FrameworkVer.Kind))
	buf = appendString(buf, m.FrameworkVer.Version.String())
	buf = appendInt32(buf, int32(m.Platform))
	buf = appendInt32(buf, int32(m.Kind))
	buf = appendString(buf, m.ContentHash)
	buf = appendString(buf, m.LoaderError)

	buf = appendCount(buf, len(m.References))
	for _, ref := range m.References {
		buf = serializeReference(buf, ref)
	}

	buf = appendCount(buf, len(m.SourcePackages))
	for _, pkg := range m.SourcePackages {
		buf = appendString(buf, pkg.Name)
		buf = appendString(buf, pkg.Version)
	}

	return buf
}

func serializeReference(buf []byte, ref Reference) []byte {
	buf = appendString(buf, ref.BinaryName)
	buf = appendOptString(buf, ref.DeclaredVersion)
	buf = appendOptString(buf, ref.EffectiveVersion)
	buf = appendInt32(buf, int32(ref.Kind))
	buf = appendOptString(buf, ref.FullName)
	buf = appendOptString(buf, ref.CodebaseHint)
	return buf
}

// Deserialize decodes a ModuleData previously produced by Serialize.
func Deserialize(data []byte) (*ModuleData, error) {
	var m ModuleData
	var err error

	if m.FilePath, data, err = consumeOptString(data); err != nil {
		return nil, err
	}
	if m.BinaryName, data, err = consumeString(data); err != nil {
		return nil, err
	}
	if m.FullName, data, err = consumeOptString(data); err != nil {
		return nil, err
	}
	if m.Version, data, err = consumeOptString(data); err != nil {
		return nil, err
	}
	if m.FrameworkID, data, err = consumeString(data); err != nil {
		return nil, err
	}

	var kind int32
	if kind, data, err = consumeInt32(data); err != nil {
		return nil, err
	}
	var fwVerRaw string
	if fwVerRaw, data, err = consumeString(data); err != nil {
		return nil, err
	}
	fwVer, verErr := moduleversion.Parse(fwVerRaw)
	if verErr != nil {
		return nil, verErr
	}
	m.FrameworkVer = framework.FrameworkVersion{Kind: framework.Kind(kind), Version: fwVer}

	var platform int32
	if platform, data, err = consumeInt32(data); err != nil {
		return nil, err
	}
	m.Platform = Platform(platform)

	var binKind int32
	if binKind, data, err = consumeInt32(data); err != nil {
		return nil, err
	}
	m.Kind = BinaryKind(binKind)

	if m.ContentHash, data, err = consumeString(data); err != nil {
		return nil, err
	}
	if m.LoaderError, data, err = consumeString(data); err != nil {
		return nil, err
	}

	refCount, data, err := consumeCount(data)
	if err != nil {
		return nil, err
	}
	m.References = make([]Reference, 0, refCount)
	for i := 0; i < refCount; i++ {
		var ref Reference
		ref, data, err = deserializeReference(data)
		if err != nil {
			return nil, err
		}
		m.References = append(m.References, ref)
	}

	pkgCount, data, err := consumeCount(data)
	if err != nil {
		return nil, err
	}
	m.SourcePackages = make([]PackageId, 0, pkgCount)
	for i := 0; i < pkgCount; i++ {
		var pkg PackageId
		if pkg.Name, data, err = consumeString(data); err != nil {
			return nil, err
		}
		if pkg.Version, data, err = consumeString(data); err != nil {
			return nil, err
		}
		m.SourcePackages = append(m.SourcePackages, pkg)
	}

	return &m, nil
}

func deserializeReference(data []byte) (Reference, []byte, error) {
	var ref Reference
	var err error

	if ref.BinaryName, data, err = consumeString(data); err != nil {
		return ref, nil, err
	}
	if ref.DeclaredVersion, data, err = consumeOptString(data); err != nil {
		return ref, nil, err
	}
	if ref.EffectiveVersion, data, err = consumeOptString(data); err != nil {
		return ref, nil, err
	}

	var kind int32
	if kind, data, err = consumeInt32(data); err != nil {
		return ref, nil, err
	}
	ref.Kind = ReferenceKind(kind)

	if ref.FullName, data, err = consumeOptString(data); err != nil {
		return ref, nil, err
	}
	if ref.CodebaseHint, data, err = consumeOptString(data); err != nil {
		return ref, nil, err
	}

	return ref, data, nil
}

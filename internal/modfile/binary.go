package modfile

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gopkg.in/yaml.v3"
)

// binaryVersion constants
const (
	binaryVersionV1 byte = 0x01
)

// binaryMagic opens every binary module
var binaryMagic = [4]byte{'N', 'O', 'F', 'M'}

// IsBinary reports whether data starts with the binary module magic
func IsBinary(data []byte) bool {
	return len(data) >= len(binaryMagic) && bytes.Equal(data[:len(binaryMagic)], binaryMagic[:])
}

// EncodeBinary converts f to binary format.
// Format:
// - Magic number (4 bytes): "NOFM"
// - Version (1 byte): 0x01
// - Gob-encoded File
func EncodeBinary(f *File) ([]byte, error) {
	f.each(func(fd *FieldDecl) {
		fd.HasConst = fd.Const != nil
	}, func(in *Instr) {
		in.Has = 0
		if in.Int != nil {
			in.Has |= hasInt
		}
		if in.Str != nil {
			in.Has |= hasStr
		}
	})

	buf := new(bytes.Buffer)
	buf.Write(binaryMagic[:])
	buf.WriteByte(binaryVersionV1)

	enc := gob.NewEncoder(buf)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("module gob encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBinary reads a module written by EncodeBinary
func DecodeBinary(data []byte) (*File, error) {
	if len(data) < len(binaryMagic)+1 {
		return nil, fmt.Errorf("module data too short")
	}
	if !IsBinary(data) {
		return nil, fmt.Errorf("invalid magic number, expected NOFM")
	}

	version := data[len(binaryMagic)]
	payload := data[len(binaryMagic)+1:]

	switch version {
	case binaryVersionV1:
		var f File
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&f); err != nil {
			return nil, fmt.Errorf("v1 gob decoding failed: %w", err)
		}
		f.each(func(fd *FieldDecl) {
			if fd.HasConst && fd.Const == nil {
				fd.Const = new(int64)
			}
		}, func(in *Instr) {
			if in.Has&hasInt != 0 && in.Int == nil {
				in.Int = new(int64)
			}
			if in.Has&hasStr != 0 && in.Str == nil {
				in.Str = new(string)
			}
		})
		return &f, nil
	default:
		return nil, fmt.Errorf("unsupported module version: %d (this build supports version %d)",
			version, binaryVersionV1)
	}
}

// EncodeText converts f to the YAML text format
func EncodeText(f *File) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("module yaml encoding failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeText parses the YAML text format. Unknown keys are rejected.
func DecodeText(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("module yaml decoding failed: %w", err)
	}
	return &f, nil
}

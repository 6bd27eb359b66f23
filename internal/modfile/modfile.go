package modfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/funvibe/nameof/internal/config"
	"github.com/funvibe/nameof/internal/il"

	"github.com/google/uuid"
)

// Format selects an on-disk encoding
type Format int

const (
	Text Format = iota
	Binary
)

func (f Format) String() string {
	if f == Binary {
		return "binary"
	}
	return "text"
}

// FormatFor picks the encoding for path from its extension. Anything not
// ending in the binary extension is written as text.
func FormatFor(path string) Format {
	if strings.HasSuffix(path, config.BinaryModuleFileExt) {
		return Binary
	}
	return Text
}

// Decode parses data in either format, recognising binary by its magic.
func Decode(data []byte) (*il.Module, error) {
	var (
		f   *File
		err error
	)
	if IsBinary(data) {
		f, err = DecodeBinary(data)
	} else {
		f, err = DecodeText(data)
	}
	if err != nil {
		return nil, err
	}
	return ToModule(f)
}

// Encode serializes mod in the given format
func Encode(mod *il.Module, format Format) ([]byte, error) {
	f, err := FromModule(mod)
	if err != nil {
		return nil, err
	}
	if format == Binary {
		return EncodeBinary(f)
	}
	return EncodeText(f)
}

// Load reads a module from path
func Load(path string) (*il.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mod, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}

// Save writes mod to path in the format its extension selects. The module
// is a new build once written, so it receives a fresh Mvid first. Save
// returns the number of bytes written.
func Save(path string, mod *il.Module) (int, error) {
	mod.Mvid = uuid.New()
	data, err := Encode(mod, FormatFor(path))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, err
	}
	return len(data), nil
}

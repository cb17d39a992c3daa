package layout

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Target describes the data layout properties of a compilation target.
type Target struct {
	Name               string `toml:"name"`
	BigEndian          bool   `toml:"big_endian"`
	PtrBits            int    `toml:"ptr_bits"`
	MaxScalarAlignBits int    `toml:"max_scalar_align_bits"`
	MaxVectorAlignBits int    `toml:"max_vector_align_bits"`
}

// X86_64Linux is the default little-endian target.
func X86_64Linux() Target {
	return Target{
		Name:               "x86_64-linux",
		BigEndian:          false,
		PtrBits:            64,
		MaxScalarAlignBits: 128,
		MaxVectorAlignBits: 128,
	}
}

// PPC64Linux is a big-endian target used mainly for cross checks.
func PPC64Linux() Target {
	return Target{
		Name:               "ppc64-linux",
		BigEndian:          true,
		PtrBits:            64,
		MaxScalarAlignBits: 128,
		MaxVectorAlignBits: 128,
	}
}

type targetsFile struct {
	Targets []Target `toml:"targets"`
}

// LoadTargets decodes target descriptions from a TOML file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	var tf targetsFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse targets %s: %w", path, err)
	}
	for i := range tf.Targets {
		if err := tf.Targets[i].validate(); err != nil {
			return nil, fmt.Errorf("target %q: %w", tf.Targets[i].Name, err)
		}
	}
	return tf.Targets, nil
}

// FindTarget returns the built-in or described target with the given name.
func FindTarget(targets []Target, name string) (Target, bool) {
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	switch name {
	case "x86_64-linux":
		return X86_64Linux(), true
	case "ppc64-linux":
		return PPC64Linux(), true
	}
	return Target{}, false
}

func (t *Target) validate() error {
	if t.Name == "" {
		return fmt.Errorf("missing name")
	}
	if t.PtrBits <= 0 || t.PtrBits%8 != 0 {
		return fmt.Errorf("ptr_bits must be a positive multiple of 8, got %d", t.PtrBits)
	}
	if t.MaxScalarAlignBits == 0 {
		t.MaxScalarAlignBits = 128
	}
	if t.MaxVectorAlignBits == 0 {
		t.MaxVectorAlignBits = t.MaxScalarAlignBits
	}
	return nil
}

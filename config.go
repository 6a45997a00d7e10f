package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Toolchain names the external programs the driver orchestrates, plus the
// instrumentation plug-in handed to the IR transformation tool.
type Toolchain struct {
	Clang   string `yaml:"clang"`
	Opt     string `yaml:"opt"`
	Objcopy string `yaml:"objcopy"`
	Plugin  string `yaml:"plugin"`
}

// DefaultToolchain expects clang, opt, and objcopy on PATH and the
// instrumentation plug-in in the Release directory beside this executable.
func DefaultToolchain() Toolchain {
	plugin := "libCSI.so"
	if exe, err := os.Executable(); err == nil {
		plugin = filepath.Join(filepath.Dir(exe), "..", "Release", "libCSI.so")
	}
	return Toolchain{
		Clang:   "clang",
		Opt:     "opt",
		Objcopy: "objcopy",
		Plugin:  plugin,
	}
}

// LoadToolchain reads the optional YAML toolchain configuration. CSI_CONFIG
// names the file explicitly; otherwise csi-cc.yaml beside the executable is
// tried. Fields the file does not set keep their defaults.
func LoadToolchain() Toolchain {
	tools := DefaultToolchain()

	path := env.Str("CSI_CONFIG")
	explicit := path != ""
	if !explicit {
		exe, err := os.Executable()
		if err != nil {
			return tools
		}
		path = filepath.Join(filepath.Dir(exe), "csi-cc.yaml")
	}

	f, err := os.Open(path)
	if err != nil {
		if explicit {
			fmt.Fprintf(os.Stderr, "[!] Warning: Cannot Load %s\n", path)
		}
		return tools
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&tools); err != nil {
		fmt.Fprintf(os.Stderr, "[!] Warning: Cannot Parse %s: %v\n", path, err)
	}
	return tools
}

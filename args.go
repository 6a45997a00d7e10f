package main

import (
	"fmt"
	"path/filepath"
)

// Argument is a structured sequence of one or more command-line tokens
// treated as a unit: either an option (possibly with a value) or an input
// file. Arguments know how to render themselves onto the command line of a
// given stage.
type Argument interface {
	// ForCommandLine renders the argument for the given stage set. The
	// substitutions map, when non-nil, replaces input files with compiled
	// artifacts: a file mapped to a path renders as that path alone, a file
	// mapped to "" renders normally, and a file absent from the map renders
	// to nothing at all.
	ForCommandLine(forStages Stage, substitutions map[*InputFile]string) []string
	String() string
}

// Option is a command-line option, possibly with a value argument.
type Option struct {
	Stages   Stage
	Flag     string
	Value    string
	hasValue bool
}

// NewOption builds an option without a value argument.
func NewOption(stages Stage, flag string) *Option {
	return &Option{Stages: stages, Flag: flag}
}

// NewValueOption builds an option carrying one value argument.
func NewValueOption(stages Stage, flag, value string) *Option {
	return &Option{Stages: stages, Flag: flag, Value: value, hasValue: true}
}

func (o *Option) ForCommandLine(forStages Stage, _ map[*InputFile]string) []string {
	if !forStages.Overlaps(o.Stages) {
		return nil
	}
	if o.hasValue {
		return []string{o.Flag, o.Value}
	}
	return []string{o.Flag}
}

func (o *Option) String() string {
	if o.hasValue {
		return fmt.Sprintf("%s %s [%s]", o.Flag, o.Value, o.Stages)
	}
	return fmt.Sprintf("%s [%s]", o.Flag, o.Stages)
}

// InputFile is the file name and source language of a single input file.
// The language is fixed at creation and never changes afterward.
type InputFile struct {
	Filename string
	Language string
}

// NewInputFile records an input file, guessing its language from the file
// name suffix unless an explicit language override is in effect.
func NewInputFile(filename, language string) *InputFile {
	if language == "" {
		language = guessLanguage(filename)
	}
	return &InputFile{Filename: filename, Language: language}
}

// standardSuffixes maps file name extensions to source languages, matching
// the suffix rules of gcc. Anything not listed is handed to the linker
// untouched.
var standardSuffixes = map[string]string{
	".adb": "ada",
	".ads": "ada",
	".c":   "c",
	".c++": "c++",
	".C":   "c++",
	".cc":  "c++",
	".cp":  "c++",
	".cpp": "c++",
	".CPP": "c++",
	".cxx": "c++",
	".f03": "f95",
	".F03": "f95-cpp-input",
	".f08": "f95",
	".F08": "f95-cpp-input",
	".f90": "f95",
	".F90": "f95-cpp-input",
	".f95": "f95",
	".F95": "f95-cpp-input",
	".f":   "f77",
	".F":   "f77-cpp-input",
	".for": "f77",
	".FOR": "f77-cpp-input",
	".fpp": "f77-cpp-input",
	".FPP": "f77-cpp-input",
	".ftn": "f77",
	".FTN": "f77-cpp-input",
	".go":  "go",
	".h":   "c-header",
	".h++": "c++-header",
	".H":   "c++-header",
	".hh":  "c++-header",
	".hp":  "c++-header",
	".hpp": "c++-header",
	".HPP": "c++-header",
	".hxx": "c++-header",
	".i":   "cpp-output",
	".ii":  "c++-cpp-output",
	".mii": "objective-c++-cpp-output",
	".mi":  "objective-c-cpp-output",
	".mm":  "objective-c++",
	".m":   "objective-c",
	".M":   "objective-c++",
	".s":   "assembler",
	".S":   "assembler-with-cpp",
	".sx":  "assembler-with-cpp",
	".tcc": "c++-header",
}

func guessLanguage(filename string) string {
	if language, ok := standardSuffixes[filepath.Ext(filename)]; ok {
		return language
	}
	return "linker"
}

func (f *InputFile) ForCommandLine(_ Stage, substitutions map[*InputFile]string) []string {
	if substitutions != nil {
		substitution, ok := substitutions[f]
		if !ok {
			return nil
		}
		if substitution != "" {
			return []string{substitution}
		}
	}
	return []string{"-x", f.Language, f.Filename}
}

func (f *InputFile) String() string {
	return fmt.Sprintf("%s [%s]", f.Filename, f.Language)
}

// expandArgs renders a parsed argument sequence to command-line tokens for
// one stage's invocation.
func expandArgs(args []Argument, forStages Stage, substitutions map[*InputFile]string) []string {
	var expanded []string
	for _, arg := range args {
		expanded = append(expanded, arg.ForCommandLine(forStages, substitutions)...)
	}
	return expanded
}

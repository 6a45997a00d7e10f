package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Driver emulates one invocation of a standard compiler front end, deciding
// file by file whether to preprocess, compile, assemble, or link, and
// threading the instrumentation step through each per-file compile.
type Driver struct {
	tools        Toolchain
	instrumenter Instrumenter

	exact    map[string]exactHandler
	patterns []patternHandler

	inputFiles          []*InputFile
	inputLanguage       string
	outputFile          string
	pthreadOptions      []*Option
	pthreadUsedByLinker bool
	verbose             bool
	derivedNearOutput   bool

	finalGoal     func(args []Argument) error
	temporaryFile func(input *InputFile, extension string) (string, error)
	tempFiles     []string
	execute       func(argv []string) error
}

// NewDriver wires a driver to its toolchain and instrumentation provider.
// The provider's own flag handlers extend the standard tables: extra exact
// entries override base ones, extra patterns are tried first.
func NewDriver(tools Toolchain, instrumenter Instrumenter, extraExact map[string]exactHandler, extraPatterns []patternHandler) *Driver {
	d := &Driver{
		tools:               tools,
		instrumenter:        instrumenter,
		pthreadUsedByLinker: true,
		execute:             execute,
	}
	d.exact = baseExactHandlers()
	for flag, handler := range extraExact {
		d.exact[flag] = handler
	}
	d.patterns = append(append([]patternHandler{}, extraPatterns...), basePatternHandlers()...)
	d.finalGoal = d.buildLinked
	d.temporaryFile = d.ephemeralFile
	return d
}

// Process runs a single command line end to end: classify every token,
// resolve the deferred pthread stage narrowing, then execute whichever
// terminal goal the flags selected.
func (d *Driver) Process(args []string) error {
	var parsed []Argument
	if err := d.parse(args, &parsed); err != nil {
		return err
	}

	if !d.pthreadUsedByLinker {
		// the caller supplies their own startup or runtime files, so the
		// linker must not be asked to add threading support
		for _, option := range d.pthreadOptions {
			option.Stages = StageAll &^ StageLinker
		}
	}

	return d.finalGoal(parsed)
}

// checkMultipleOutputFiles rejects an explicitly named output when the goal
// will generate one output per input and more than one input was given.
func (d *Driver) checkMultipleOutputFiles() error {
	if d.outputFile != "" && len(d.inputFiles) > 1 {
		return NewArgumentError("-o", "cannot specify '%s' when generating multiple output files")
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
//
//  file management
//

// derivedName builds a persistent artifact name by swapping the extension
// of either the input's base name or the named output, depending on which
// save-temps variant was requested.
func (d *Driver) derivedName(input *InputFile, extension string) string {
	basis := filepath.Base(input.Filename)
	if d.derivedNearOutput && d.outputFile != "" {
		basis = d.outputFile
	}
	return strings.TrimSuffix(basis, filepath.Ext(basis)) + extension
}

// derivedFile is the save-temps naming policy: artifacts are named from the
// input or output and left on disk afterward.
func (d *Driver) derivedFile(input *InputFile, extension string) (string, error) {
	return d.derivedName(input, extension), nil
}

// ephemeralFile is the default naming policy: an anonymous file registered
// for removal when the invocation ends.
func (d *Driver) ephemeralFile(_ *InputFile, extension string) (string, error) {
	handle, err := os.CreateTemp("", "csi-*"+extension)
	if err != nil {
		return "", err
	}
	if err := handle.Close(); err != nil {
		return "", err
	}
	d.tempFiles = append(d.tempFiles, handle.Name())
	return handle.Name(), nil
}

// TemporaryFile allocates an intermediate artifact under the active naming
// policy. The instrumentation provider uses this for its per-input info
// files so they share the driver's lifecycle.
func (d *Driver) TemporaryFile(input *InputFile, extension string) (string, error) {
	return d.temporaryFile(input, extension)
}

// Cleanup removes every ephemeral artifact registered so far. It runs on
// every exit path; files already gone are fine.
func (d *Driver) Cleanup() {
	for _, chaff := range d.tempFiles {
		if err := os.Remove(chaff); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[!] Warning: cannot remove %s: %v\n", chaff, err)
		}
	}
	d.tempFiles = nil
}

////////////////////////////////////////////////////////////////////////
//
//  compilation helpers
//

// sourceToBitcodeCommand builds the command line compiling one source file
// to bitcode. Only this input renders; all others are suppressed.
func (d *Driver) sourceToBitcodeCommand(input *InputFile, outputFile string, args []Argument) []string {
	argv := []string{d.tools.Clang, "-emit-llvm", "-c", "-o", outputFile}
	only := map[*InputFile]string{input: ""}
	return append(argv, expandArgs(args, StagePreprocessor|StageCompiler, only)...)
}

// variousToObjectCommand builds the command line compiling bitcode,
// assembly, or preprocessable assembly to native object or assembly form.
func (d *Driver) variousToObjectCommand(outputFile string, substitutions map[*InputFile]string, forStages Stage, args []Argument, targetFlag string) []string {
	argv := []string{d.tools.Clang, targetFlag, "-o", outputFile}
	return append(argv, expandArgs(args, StageAssembler|forStages, substitutions)...)
}

// instrumentBitcode adds instrumentation to a single source file's bitcode
// by running the IR transformation tool with the provider's flags.
func (d *Driver) instrumentBitcode(input *InputFile, uninstrumented, instrumented string) error {
	extra, err := d.instrumenter.TransformArgs(d, input)
	if err != nil {
		return err
	}
	argv := append([]string{d.tools.Opt, "-o", instrumented, uninstrumented}, extra...)
	return d.Run(argv)
}

// compileTo compiles a single input file to a single output object or
// assembly file. Source inputs go through the three-step instrumenting
// pipeline; assembly inputs have no bitcode to instrument and go straight
// to the backend.
func (d *Driver) compileTo(input *InputFile, objectFile string, args []Argument, targetFlag string) error {
	switch input.Language {
	case "assembler":
		raw := map[*InputFile]string{input: input.Filename}
		return d.Run(d.variousToObjectCommand(objectFile, raw, 0, args, targetFlag))

	case "assembler-with-cpp":
		normal := map[*InputFile]string{input: ""}
		return d.Run(d.variousToObjectCommand(objectFile, normal, StagePreprocessor, args, targetFlag))

	default:
		uninstrumented, err := d.temporaryFile(input, ".uninstrumented.bc")
		if err != nil {
			return err
		}
		if err := d.Run(d.sourceToBitcodeCommand(input, uninstrumented, args)); err != nil {
			return err
		}

		instrumented, err := d.temporaryFile(input, ".instrumented.bc")
		if err != nil {
			return err
		}
		if err := d.instrumentBitcode(input, uninstrumented, instrumented); err != nil {
			return err
		}

		spliced := map[*InputFile]string{input: instrumented}
		if err := d.Run(d.variousToObjectCommand(objectFile, spliced, StageCompiler, args, targetFlag)); err != nil {
			return err
		}

		if targetFlag == "-c" {
			return d.instrumenter.Attach(d, objectFile)
		}
		return nil
	}
}

////////////////////////////////////////////////////////////////////////
//
//  linking helpers
//

// makeLinkable compiles an input to a temporary object file in preparation
// for linking; inputs the linker already understands pass through.
func (d *Driver) makeLinkable(input *InputFile, args []Argument) (string, error) {
	if input.Language == "linker" {
		return input.Filename, nil
	}
	objectFile, err := d.temporaryFile(input, ".o")
	if err != nil {
		return "", err
	}
	if err := d.compileTo(input, objectFile, args, "-c"); err != nil {
		return "", err
	}
	return objectFile, nil
}

////////////////////////////////////////////////////////////////////////
//
//  final goal builders
//

// buildLinked compiles every input as needed and links the results.
func (d *Driver) buildLinked(args []Argument) error {
	outputFile := d.outputFile
	if outputFile == "" {
		outputFile = "a.out"
	}

	substitutions := make(map[*InputFile]string, len(d.inputFiles))
	for _, input := range d.inputFiles {
		linkable, err := d.makeLinkable(input, args)
		if err != nil {
			return err
		}
		substitutions[input] = linkable
	}

	argv := append([]string{d.tools.Clang, "-o", outputFile}, expandArgs(args, StageLinker, substitutions)...)
	return d.Run(argv)
}

// buildObject builds one native object file per input, but does not link.
func (d *Driver) buildObject(args []Argument) error {
	return d.buildEach(args, ".o", "-c")
}

// buildAssembly builds one native assembly file per input, but does not
// assemble.
func (d *Driver) buildAssembly(args []Argument) error {
	return d.buildEach(args, ".s", "-S")
}

func (d *Driver) buildEach(args []Argument, extension, targetFlag string) error {
	if err := d.checkMultipleOutputFiles(); err != nil {
		return err
	}
	for _, input := range d.inputFiles {
		outputFile := d.outputFile
		if outputFile == "" {
			outputFile = d.derivedName(input, extension)
		}
		if err := d.compileTo(input, outputFile, args, targetFlag); err != nil {
			return err
		}
	}
	return nil
}

// buildPreprocessed preprocesses all inputs together, but does not compile.
func (d *Driver) buildPreprocessed(args []Argument) error {
	argv := []string{d.tools.Clang, "-E"}
	if d.outputFile != "" {
		argv = append(argv, "-o", d.outputFile)
	}
	argv = append(argv, expandArgs(args, StagePreprocessor, nil)...)
	return d.Run(argv)
}

// buildHelp prints the backend's help information; nothing is built.
func (d *Driver) buildHelp(args []Argument) error {
	argv := append([]string{d.tools.Clang}, expandArgs(args, StageHelp, nil)...)
	return d.Run(argv)
}

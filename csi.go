package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/xyproto/env/v2"
)

// Instrumenter is the pluggable instrumentation provider. The driver asks
// it for extra flags when transforming one input's bitcode, and gives it a
// chance to attach whatever metadata it produced to the finished object.
type Instrumenter interface {
	// TransformArgs returns the flags appended to the IR transformation
	// command for one input file. It runs once per input, before the
	// transformation, and may allocate per-input artifacts through the
	// driver's temporary-file policy.
	TransformArgs(d *Driver, input *InputFile) ([]string, error)

	// Attach embeds metadata produced for the current input into the given
	// object file. Missing or empty metadata is simply skipped.
	Attach(d *Driver, objectFile string) error
}

// CSI is the csi-cc instrumentation provider: path tracing plus call,
// basic-block, and function coverage, each independently toggleable, with
// per-input info files embedded into objects as debug sections.
type CSI struct {
	tools Toolchain

	arraySize string
	hashSize  string
	silent    bool
	filter    bool
	traceFile string
	debugPass string

	pathTracing   bool
	callCoverage  bool
	blockCoverage bool
	funcCoverage  bool

	ptFile  string
	ccFile  string
	bbcFile string
	fcFile  string
}

// NewCSI builds a provider configured from the environment. Command-line
// flags processed later always take precedence over these values.
func NewCSI(tools Toolchain) *CSI {
	return &CSI{
		tools:         tools,
		arraySize:     env.Str("PT_ARRAY_SIZE"),
		hashSize:      env.Str("PT_HASH_SIZE"),
		silent:        env.Bool("CSI_SILENT"),
		filter:        true,
		pathTracing:   analysisEnabled("CSI_PT"),
		callCoverage:  analysisEnabled("CSI_CC"),
		blockCoverage: analysisEnabled("CSI_BBC"),
		funcCoverage:  analysisEnabled("CSI_FC"),
	}
}

// analysisEnabled reads an analysis toggle from the environment. Analyses
// default to on; only an explicit false value turns one off.
func analysisEnabled(name string) bool {
	if env.Str(name) == "" {
		return true
	}
	return env.Bool(name)
}

////////////////////////////////////////////////////////////////////////
//
//  provider-specific command-line flags
//

func (c *CSI) setFlag(target *string, index int) handlerFunc {
	return func(_ *Driver, values []string) (Argument, error) {
		*target = values[index]
		return nil, nil
	}
}

func (c *CSI) disable(target *bool) handlerFunc {
	return func(_ *Driver, _ []string) (Argument, error) {
		*target = false
		return nil, nil
	}
}

// ExactHandlers is the provider's addition to the exact-match dispatch
// table; its "--help" entry overrides the standard one.
func (c *CSI) ExactHandlers() map[string]exactHandler {
	return map[string]exactHandler{
		"-path-array-size": {2, c.setFlag(&c.arraySize, 1)},
		"-hash-size":       {2, c.setFlag(&c.hashSize, 1)},
		"-no-filter":       {1, c.disable(&c.filter)},
		"--silent": {1, func(_ *Driver, _ []string) (Argument, error) {
			c.silent = true
			return nil, nil
		}},
		"-no-path-tracing":  {1, c.disable(&c.pathTracing)},
		"-no-call-coverage": {1, c.disable(&c.callCoverage)},
		"-no-bb-coverage":   {1, c.disable(&c.blockCoverage)},
		"-no-fn-coverage":   {1, c.disable(&c.funcCoverage)},
		"--help": {1, func(d *Driver, _ []string) (Argument, error) {
			d.finalGoal = buildCSIHelp
			return nil, nil
		}},
		"--help-clang": {1, func(d *Driver, _ []string) (Argument, error) {
			return handleGoalHelp(d, []string{"--help"})
		}},
	}
}

// PatternHandlers is the provider's addition to the pattern table, tried
// before the standard patterns.
func (c *CSI) PatternHandlers() []patternHandler {
	return []patternHandler{
		{regexp.MustCompile(`^--trace=(.+)$`), func(_ *Driver, values []string) (Argument, error) {
			traceFile := strings.TrimSpace(values[0])
			if _, err := os.Stat(traceFile); err != nil {
				return nil, orpheus.NotFoundError("--trace", "trace file does not exist; revise --trace argument")
			}
			c.traceFile = traceFile
			return nil, nil
		}},
		{regexp.MustCompile(`^-debug-pass=(.+)$`), func(_ *Driver, values []string) (Argument, error) {
			c.debugPass = strings.ToLower(strings.TrimSpace(values[0]))
			return nil, nil
		}},
	}
}

////////////////////////////////////////////////////////////////////////
//
//  transformation flags
//

// checkPositiveInt validates a sizing parameter, emitting the flag and its
// normalized value, or a warning and nothing when the value is unusable.
func checkPositiveInt(setting, flag, description string) []string {
	if setting == "" {
		return nil
	}
	value, err := strconv.ParseInt(setting, 0, 64)
	if err != nil || value <= 0 {
		fmt.Fprintf(os.Stderr, "WARNING: %s must be a positive integer; ignoring \"%s\"\n", description, setting)
		return nil
	}
	return []string{flag, strconv.FormatInt(value, 10)}
}

// TransformArgs allocates this input's info files and assembles the pass
// configuration for the IR transformation tool.
func (c *CSI) TransformArgs(d *Driver, input *InputFile) ([]string, error) {
	c.ptFile, c.ccFile, c.bbcFile, c.fcFile = "", "", "", ""

	var err error
	if c.pathTracing {
		if c.ptFile, err = d.TemporaryFile(input, ".pt.info"); err != nil {
			return nil, err
		}
	}
	if c.callCoverage {
		if c.ccFile, err = d.TemporaryFile(input, ".cc.info"); err != nil {
			return nil, err
		}
	}
	if c.blockCoverage {
		if c.bbcFile, err = d.TemporaryFile(input, ".bbc.info"); err != nil {
			return nil, err
		}
	}
	if c.funcCoverage {
		if c.fcFile, err = d.TemporaryFile(input, ".fc.info"); err != nil {
			return nil, err
		}
	}

	var args []string
	switch c.debugPass {
	case "":
	case "all":
		args = append(args, "--debug-pass=Structure", "-debug")
	case "prep":
		args = append(args, "-debug-only=csi-prep")
	default:
		args = append(args, "-debug-only="+c.debugPass)
	}

	// instrumentation plug-in
	args = append(args, "-load", c.tools.Plugin, "-csi")
	if c.traceFile != "" {
		args = append(args, "-csi-variants-file", c.traceFile)
	}
	if !c.filter {
		args = append(args, "-csi-no-filter")
	}
	if c.silent {
		args = append(args, "-csi-silent")
	}

	if c.pathTracing {
		args = append(args, "-pt-inst", "-pt-info-file", c.ptFile)
		args = append(args, checkPositiveInt(c.arraySize, "-pt-path-array-size", "path tracing array size")...)
		args = append(args, checkPositiveInt(c.hashSize, "-pt-hash-size", "path count \"hash\" size")...)
		if c.silent {
			args = append(args, "-pt-silent")
		}
		if c.debugPass == "pt" {
			args = append(args, "-debug-only=path-tracing")
		}
	}

	if c.callCoverage {
		args = append(args, "-call-coverage", "-cc-info-file", c.ccFile)
		if c.silent {
			args = append(args, "-cc-silent")
		}
		if c.debugPass == "cc" {
			args = append(args, "-debug-only=call-coverage")
		}
	}

	if c.blockCoverage {
		args = append(args, "-bb-coverage", "-bbc-info-file", c.bbcFile)
		if c.silent {
			args = append(args, "-bbc-silent")
		}
		if c.debugPass == "bbc" {
			args = append(args, "-debug-only=bb-coverage")
		}
	}

	if c.funcCoverage {
		args = append(args, "-fn-coverage", "-fc-info-file", c.fcFile)
		if c.silent {
			args = append(args, "-fc-silent")
		}
		if c.debugPass == "fc" {
			args = append(args, "-debug-only=func-coverage")
		}
	}

	return args, nil
}

////////////////////////////////////////////////////////////////////////
//
//  metadata embedding
//

// Attach embeds each analysis's info file into the object as a debug
// section. An analysis that produced nothing has nothing to attach.
func (c *CSI) Attach(d *Driver, objectFile string) error {
	sections := []struct {
		name, file string
	}{
		{"PT", c.ptFile},
		{"CC", c.ccFile},
		{"BBC", c.bbcFile},
		{"FC", c.fcFile},
	}
	for _, section := range sections {
		if err := c.embedSection(d, objectFile, section.name, section.file); err != nil {
			return err
		}
	}
	return nil
}

func (c *CSI) embedSection(d *Driver, objectFile, section, filename string) error {
	if filename == "" {
		return nil
	}
	info, err := os.Stat(filename)
	if err != nil || info.Size() == 0 {
		return nil
	}
	argv := []string{
		c.tools.Objcopy,
		"--add-section",
		fmt.Sprintf(".debug_%s=%s", section, filename),
		objectFile,
	}
	return d.Run(argv)
}

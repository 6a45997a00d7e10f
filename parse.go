package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/kballard/go-shellquote"
)

// handlerFunc classifies one recognized token. values[0] is the flag as
// spelled (or the first pattern capture); any further entries are captures
// or value tokens pulled from the argument stream. A handler may update
// driver state, return an Argument for later command lines, or both.
// Returning a nil Argument drops the token from the rendered sequence.
type handlerFunc func(d *Driver, values []string) (Argument, error)

// exactHandler is one entry of the literal-token dispatch table. arity is
// the total number of values the handler expects, counting the flag itself;
// missing values are consumed from the tokens that follow.
type exactHandler struct {
	arity int
	apply handlerFunc
}

// patternHandler is one entry of the ordered pattern table. Patterns are
// tried top to bottom and the first match wins, so specific forms (the
// concatenated -oFILE, say) must come before the catch-alls.
type patternHandler struct {
	pattern *regexp.Regexp
	apply   handlerFunc
}

// stageOption keeps a flag with no value argument, tagged for the given
// stages.
func stageOption(stages Stage) handlerFunc {
	return func(_ *Driver, values []string) (Argument, error) {
		return NewOption(stages, values[0]), nil
	}
}

// stageValueOption keeps a flag with one value argument, tagged for the
// given stages.
func stageValueOption(stages Stage) handlerFunc {
	return func(_ *Driver, values []string) (Argument, error) {
		return NewValueOption(stages, values[0], values[1]), nil
	}
}

func handleGoalPreprocessed(d *Driver, _ []string) (Argument, error) {
	d.finalGoal = d.buildPreprocessed
	return nil, nil
}

func handleGoalAssembly(d *Driver, _ []string) (Argument, error) {
	d.finalGoal = d.buildAssembly
	return nil, nil
}

func handleGoalObject(d *Driver, _ []string) (Argument, error) {
	d.finalGoal = d.buildObject
	return nil, nil
}

func handleGoalHelp(d *Driver, values []string) (Argument, error) {
	d.finalGoal = d.buildHelp
	return NewOption(StageAll, values[0]), nil
}

func handleSaveTempsCwd(d *Driver, values []string) (Argument, error) {
	d.temporaryFile = d.derivedFile
	d.derivedNearOutput = false
	return NewOption(StageAll, values[0]), nil
}

func handleSaveTempsObj(d *Driver, values []string) (Argument, error) {
	d.temporaryFile = d.derivedFile
	d.derivedNearOutput = true
	return NewOption(StageAll, values[0]), nil
}

func handleOutputFilename(d *Driver, values []string) (Argument, error) {
	d.outputFile = values[1]
	return nil, nil
}

func handlePthread(d *Driver, values []string) (Argument, error) {
	// tagged for every stage now; narrowed after the full parse when the
	// caller supplies their own startup or runtime files
	option := NewOption(StageAll, values[0])
	d.pthreadOptions = append(d.pthreadOptions, option)
	return option, nil
}

func handleInputLanguage(d *Driver, values []string) (Argument, error) {
	if values[1] == "none" {
		d.inputLanguage = ""
	} else {
		d.inputLanguage = values[1]
	}
	return nil, nil
}

func handleVerbose(d *Driver, values []string) (Argument, error) {
	d.verbose = true
	return NewOption(StageAll, values[0]), nil
}

func handleNoStartFiles(d *Driver, values []string) (Argument, error) {
	d.pthreadUsedByLinker = false
	return NewOption(StageLinker, values[0]), nil
}

func handleNoStdLib(d *Driver, values []string) (Argument, error) {
	d.pthreadUsedByLinker = false
	return NewOption(StageAll, values[0]), nil
}

func handleInputFilename(d *Driver, values []string) (Argument, error) {
	inputFile := NewInputFile(values[0], d.inputLanguage)
	d.inputFiles = append(d.inputFiles, inputFile)
	return inputFile, nil
}

// baseExactHandlers is the literal-token dispatch table for the standard
// compiler flag vocabulary. Flags not listed here fall through to the
// pattern table.
func baseExactHandlers() map[string]exactHandler {
	keep := func(stages Stage) exactHandler { return exactHandler{1, stageOption(stages)} }
	keepValue := func(stages Stage) exactHandler { return exactHandler{2, stageValueOption(stages)} }

	return map[string]exactHandler{
		// overall options
		"-E":              {1, handleGoalPreprocessed},
		"-S":              {1, handleGoalAssembly},
		"-c":              {1, handleGoalObject},
		"-save-temps":     {1, handleSaveTempsCwd},
		"-save-temps=cwd": {1, handleSaveTempsCwd},
		"-save-temps=obj": {1, handleSaveTempsObj},
		"-o":              {2, handleOutputFilename},
		"-pthread":        {1, handlePthread},
		"-pthreads":       {1, handlePthread},
		"-x":              {2, handleInputLanguage},
		"-v":              {1, handleVerbose},
		"--help":          {1, handleGoalHelp},
		"--version":       {1, handleGoalHelp},
		"-wrapper":        keepValue(StageAll),

		// C dialect options
		"-aux-info": keepValue(StageAll),

		// optimize options
		"--param": keepValue(StageAll),

		// preprocessor options
		"-A":                 keepValue(StagePreprocessor),
		"-D":                 keepValue(StageAll),
		"-I":                 keepValue(StagePreprocessor),
		"-MF":                keepValue(StagePreprocessor),
		"-MD":                keep(StagePreprocessor),
		"-MMD":               keep(StagePreprocessor),
		"-MP":                keep(StagePreprocessor),
		"-MQ":                keepValue(StagePreprocessor),
		"-MT":                keepValue(StagePreprocessor),
		"-U":                 keepValue(StageAll),
		"-Xpreprocessor":     keepValue(StagePreprocessor),
		"-idirafter":         keepValue(StageAll),
		"-imacros":           keepValue(StageAll),
		"-imultilib":         keepValue(StageAll),
		"-include":           keepValue(StagePreprocessor),
		"-iprefix":           keepValue(StageAll),
		"-iquote":            keepValue(StageAll),
		"-isysroot":          keepValue(StageAll),
		"-isystem":           keepValue(StageAll),
		"-iwithprefix":       keepValue(StageAll),
		"-iwithprefixbefore": keepValue(StageAll),

		// assembler options
		"-Xassembler": keepValue(StageAssembler),

		// link options
		"-L":            keepValue(StageLinker),
		"-T":            keepValue(StageLinker),
		"-Xlinker":      keepValue(StageLinker),
		"-fopenmp":      keep(StageLinker),
		"-l":            keepValue(StageLinker),
		"-nostartfiles": {1, handleNoStartFiles},
		"-nostdlib":     {1, handleNoStdLib},
		"-u":            keepValue(StageLinker),

		// Darwin options
		"-bundle_loader":    keepValue(StageAll),
		"-allowable_client": keepValue(StageAll),

		// M32R/D options; MIPS options; RS/6000 and PowerPC options
		"-G": keepValue(StageAll),
	}
}

// basePatternHandlers is the ordered pattern table, tried after the exact
// table misses. The last two entries are unconditional: every token is at
// worst an unrecognized flag or an input file.
func basePatternHandlers() []patternHandler {
	return []patternHandler{
		// overall options
		{regexp.MustCompile(`^(-o)(.+)$`), handleOutputFilename},
		{regexp.MustCompile(`^(-x)(.+)$`), handleInputLanguage},
		{regexp.MustCompile(`^(--help=.+)$`), handleGoalHelp},
		{regexp.MustCompile(`^(-std=.+)$`), stageOption(StageAll &^ StageLinker)},

		// preprocessor options
		{regexp.MustCompile(`^(-[AI].+)$`), stageOption(StagePreprocessor)},
		{regexp.MustCompile(`^(-Wp,.*)$`), stageOption(StagePreprocessor)},

		// assembler options
		{regexp.MustCompile(`^(-Wa,.*)$`), stageOption(StageAssembler)},

		// link options
		{regexp.MustCompile(`^(-[Llt])(.+)$`), stageValueOption(StageLinker)},
		{regexp.MustCompile(`^(-Wl,.*)$`), stageOption(StageLinker)},

		// M32R/D options; MIPS options; RS/6000 and PowerPC options
		{regexp.MustCompile(`^(-G)(.+)$`), stageValueOption(StageAll)},

		// all other options and input files; must appear last
		{regexp.MustCompile(`^(-.*)$`), stageOption(StageAll)},
		{regexp.MustCompile(`^(.*)$`), handleInputFilename},
	}
}

// pickHandler resolves one token against the exact table, then the pattern
// table. Returns the handler, the number of values it expects, and the
// values captured so far.
func (d *Driver) pickHandler(arg string) (handlerFunc, int, []string) {
	if handler, ok := d.exact[arg]; ok {
		return handler.apply, handler.arity, []string{arg}
	}
	for _, entry := range d.patterns {
		if match := entry.pattern.FindStringSubmatch(arg); match != nil {
			return entry.apply, len(match) - 1, match[1:]
		}
	}
	// the final catch-all pattern accepts any token, so getting here means
	// the table itself is broken
	panic(fmt.Sprintf("no handler for %q", arg))
}

// parse classifies a raw token stream into parsed arguments, consuming
// value tokens as handlers demand them and splicing in @file response
// files where they appear.
func (d *Driver) parse(args []string, parsed *[]Argument) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "@") {
			filename := arg[1:]
			content, err := os.ReadFile(filename)
			if err != nil {
				return orpheus.NotFoundError(arg, fmt.Sprintf("cannot read arguments from '%s'", filename))
			}
			subargs, err := shellquote.Split(string(content))
			if err != nil {
				return NewArgumentError(arg, "malformed argument file '%s'")
			}
			if err := d.parse(subargs, parsed); err != nil {
				return err
			}
			continue
		}

		apply, arity, values := d.pickHandler(arg)
		for len(values) < arity {
			i++
			if i >= len(args) {
				return NewArgumentError(arg, "argument to '%s' is missing")
			}
			values = append(values, args[i])
		}
		argument, err := apply(d, values)
		if err != nil {
			return err
		}
		if argument != nil {
			*parsed = append(*parsed, argument)
		}
	}
	return nil
}

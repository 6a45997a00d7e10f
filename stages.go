package main

// Stage identifies one phase of a build. Every parsed option and input file
// is tagged with the set of stages whose command lines it belongs on.
type Stage uint8

const (
	StageHelp Stage = 1 << iota
	StagePreprocessor
	StageCompiler
	StageAssembler
	StageLinker
)

// StageAll tags options that belong on every command line.
const StageAll = StageHelp | StagePreprocessor | StageCompiler | StageAssembler | StageLinker

// Overlaps reports whether the two stage sets share at least one stage.
func (s Stage) Overlaps(other Stage) bool {
	return s&other != 0
}

func (s Stage) String() string {
	names := []struct {
		bit  Stage
		name string
	}{
		{StageHelp, "help"},
		{StagePreprocessor, "preprocessor"},
		{StageCompiler, "compiler"},
		{StageAssembler, "assembler"},
		{StageLinker, "linker"},
	}
	out := ""
	for _, n := range names {
		if s&n.bit != 0 {
			if out != "" {
				out += ","
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

package main

import "fmt"

const helpText = `
OVERVIEW: csi-cc instrumenting LLVM compiler

USAGE: csi-cc [options] <inputs>

OPTIONS:
  --trace=<file>          Use <file> as the input file for the tracing schemes.
                          If this option is not given, the scheme is read from
                          stdin.
  -debug-pass=<arg>       Enable printing of extremely verbose debug messages
                          for the pass specified as <arg>.  This should
                          generally not be used unless debugging instrumentors.
                          <arg> can be any of the supported instrumentors or
                          'all' (which enables debugging for all passes).
  -path-array-size <arg>  Use <arg> as the size of path tracing arrays
                          (Default: 10)
  -hash-size <arg>        Use <arg> as the maximum-size function (in number of
                          acyclic paths) to instrument for path tracing
                          (Default: ULONG_MAX/2+1)
  -no-filter              Do not filter tracing schemes.  All schemes provided
                          will be used verbatim for functions to which they
                          match.
  -no-path-tracing        Disable path tracing instrumentation.
  -no-call-coverage       Disable call coverage instrumentation.
  -no-bb-coverage         Disable basic block coverage instrumentation.
  -no-fn-coverage         Disable function coverage instrumentation.
  --silent                Do not print pass-specific warnings during
                          instrumentation

  --help                  Display this help message and exit
  --help-clang            Display additional options (clang's help message) and
                          exit

ENVIRONMENT VARIABLES:
  PT_ARRAY_SIZE           See -path-array-size (above).  Flags have precedence.
  PT_HASH_SIZE            See -hash-size (above).  Flags have precedence.
  CSI_SILENT              Enables or disables the printing of instrumentation
                          warnings.
                          See --silent (above).  Flags have precedence.
  CSI_PT                  Enables or disables path tracing instrumentation.
                          Flags have precedence.
  CSI_CC                  Enables or disables call coverage instrumentation.
                          Flags have precedence.
  CSI_BBC                 Enables or disables basic block coverage
                          instrumentation.  Flags have precedence.
  CSI_FC                  Enables or disables function coverage
                          instrumentation.  Flags have precedence.
  CSI_CONFIG              Path to a YAML file naming the clang, opt, and
                          objcopy executables and the instrumentation plug-in.
`

// buildCSIHelp prints the driver's own help message; nothing is built and
// no external tool runs.
func buildCSIHelp(_ []Argument) error {
	fmt.Print(helpText)
	return nil
}

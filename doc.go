/*
Package main implements csi-cc, a gcc-emulating compiler front end that
threads LLVM-based instrumentation through an otherwise ordinary build.

csi-cc accepts the command-line vocabulary of a standard C/C++ compiler and
decides, file by file, whether to preprocess, compile, assemble, or link.
Source files take a detour on the way to native code: they are first
compiled to LLVM bitcode, handed to opt with the CSI instrumentation
plug-in loaded, and only then lowered to an object or assembly file. Any
metadata the instrumentation passes emit (path tracing tables, coverage
maps) is embedded into the finished object as .debug_* sections via
objcopy.

# Argument Classification

Every token of the command line is classified through a two-tier dispatch:
an exact-match table for literal flags, then an ordered list of patterns
where the first match wins. Each recognized flag carries the set of build
stages (preprocess, compile, assemble, link) it belongs to, so regenerated
command lines contain exactly the flags relevant to that stage. Tokens of
the form @file splice in further arguments read from the named file,
shell-tokenized and expanded recursively.

# Build Goals

Exactly one terminal goal runs per invocation; the last goal-selecting
flag wins:

  - -E: preprocess all inputs together, to stdout or -o
  - -c: compile each input to an object file
  - -S: compile each input to an assembly file
  - --help, --help-clang, --version: print help, build nothing
  - default: compile whatever needs compiling, then link (a.out unless -o)

# Instrumentation

Four analyses are enabled by default and individually toggleable:
path tracing, call coverage, basic block coverage, and function coverage.
Each enabled analysis gets its own per-input info file, passed to the
instrumentation passes and afterward attached to the object file when
non-empty. Sizing parameters (-path-array-size, -hash-size) must be
positive integers; invalid values are warned about and ignored.

# Configuration

The toolchain (clang, opt, objcopy, and the plug-in path) can be
overridden by a YAML file named by $CSI_CONFIG, or csi-cc.yaml beside the
executable. Instrumentation parameters also read from the environment
(PT_ARRAY_SIZE, PT_HASH_SIZE, CSI_SILENT, CSI_PT, CSI_CC, CSI_BBC,
CSI_FC); command-line flags always take precedence.

# Temporary Files

Intermediate artifacts are ephemeral by default and removed when the
invocation ends, on every exit path. With -save-temps they are instead
named from the input file's base name (or from the output name with
-save-temps=obj) and left on disk.
*/
package main

package main

import (
	"errors"
	"os"
	"strings"
	"testing"
)

// ===== PIPELINE AND GOAL TESTS =====

func TestDefaultLinkPipeline(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"main.c"}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := *commands
	if len(got) != 4 {
		t.Fatalf("got %d commands, want 4: %v", len(got), got)
	}

	wantTools := []string{"clang", "opt", "clang", "clang"}
	for i, tool := range wantTools {
		if got[i][0] != tool {
			t.Errorf("command %d runs %q, want %q", i, got[i][0], tool)
		}
	}

	bitcode := got[0]
	if !contains(bitcode, "-emit-llvm") || !contains(bitcode, "main.c") {
		t.Errorf("bitcode command = %v", bitcode)
	}

	transform := got[1]
	if !contains(transform, "-csi") || !contains(transform, "-load") {
		t.Errorf("transform command = %v", transform)
	}

	link := got[3]
	if !contains(link, "a.out") {
		t.Errorf("link command = %v", link)
	}
	// the link consumes the temporary object, not the source file
	if contains(link, "main.c") {
		t.Errorf("link command mentions the source file: %v", link)
	}
	linked := false
	for _, token := range link {
		if strings.HasSuffix(token, ".o") {
			linked = true
		}
	}
	if !linked {
		t.Errorf("link command has no object file: %v", link)
	}
}

func TestStageFilteredCommandLines(t *testing.T) {
	driver, commands := newTestDriver(t)
	args := []string{"-I/include", "-L", "/lib", "main.c"}
	if err := driver.Process(args); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := *commands
	bitcode, backend, link := got[0], got[2], got[3]

	if !contains(bitcode, "-I/include") {
		t.Errorf("preprocess-stage flag missing from bitcode command: %v", bitcode)
	}
	if contains(bitcode, "-L") {
		t.Errorf("linker flag leaked into bitcode command: %v", bitcode)
	}
	if contains(backend, "-I/include") || contains(backend, "-L") {
		t.Errorf("backend command has out-of-stage flags: %v", backend)
	}
	if !contains(link, "-L") || !contains(link, "/lib") {
		t.Errorf("linker flag missing from link command: %v", link)
	}
	if contains(link, "-I/include") {
		t.Errorf("preprocessor flag leaked into link command: %v", link)
	}
}

func TestPthreadStageNarrowing(t *testing.T) {
	t.Run("ordinarily links with pthread", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		if err := driver.Process([]string{"-pthread", "main.o"}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		link := (*commands)[len(*commands)-1]
		if !contains(link, "-pthread") {
			t.Errorf("link command lost -pthread: %v", link)
		}
	})

	t.Run("nostdlib drops pthread from the link only", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		if err := driver.Process([]string{"-pthread", "-nostdlib", "main.c"}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		got := *commands
		bitcode, link := got[0], got[len(got)-1]
		if !contains(bitcode, "-pthread") {
			t.Errorf("compile command lost -pthread: %v", bitcode)
		}
		if contains(link, "-pthread") {
			t.Errorf("link command kept -pthread despite -nostdlib: %v", link)
		}
		if !contains(link, "-nostdlib") {
			t.Errorf("link command lost -nostdlib: %v", link)
		}
	})

	t.Run("nostartfiles narrows too", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		if err := driver.Process([]string{"-pthreads", "-nostartfiles", "main.o"}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		link := (*commands)[len(*commands)-1]
		if contains(link, "-pthreads") {
			t.Errorf("link command kept -pthreads despite -nostartfiles: %v", link)
		}
	})
}

func TestObjectGoalOutputNaming(t *testing.T) {
	t.Run("explicit output with one input", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		if err := driver.Process([]string{"-c", "-o", "custom.o", "main.c"}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		backend := (*commands)[2]
		if !contains(backend, "custom.o") {
			t.Errorf("backend command = %v, want custom.o", backend)
		}
	})

	t.Run("derived output name", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		if err := driver.Process([]string{"-c", "src/widget.c"}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		backend := (*commands)[2]
		if !contains(backend, "widget.o") {
			t.Errorf("backend command = %v, want widget.o", backend)
		}
	})

	t.Run("explicit output with two inputs is rejected", func(t *testing.T) {
		driver, commands := newTestDriver(t)
		err := driver.Process([]string{"-c", "-o", "custom.o", "a.c", "b.c"})

		var argErr *ArgumentError
		if !errors.As(err, &argErr) || argErr.Flag != "-o" {
			t.Fatalf("expected ArgumentError naming -o, got %v", err)
		}
		if len(*commands) != 0 {
			t.Errorf("no commands may run after an argument error: %v", *commands)
		}
	})
}

func TestAssemblyGoal(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-S", "main.c"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 3 {
		t.Fatalf("got %d commands, want 3 (no metadata embedding for assembly)", len(got))
	}
	backend := got[2]
	if !contains(backend, "-S") || !contains(backend, "main.s") {
		t.Errorf("backend command = %v", backend)
	}
	for _, command := range got {
		if command[0] == "objcopy" {
			t.Errorf("assembly output must not be objcopy'd: %v", command)
		}
	}
}

func TestAssemblerInputSkipsInstrumentation(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-c", "start.s"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 1 {
		t.Fatalf("got %d commands, want a single backend invocation: %v", len(got), got)
	}
	backend := got[0]
	if backend[0] != "clang" || !contains(backend, "start.s") {
		t.Errorf("backend command = %v", backend)
	}
	if contains(backend, "-x") {
		t.Errorf("raw assembly should pass through without -x: %v", backend)
	}
}

func TestAssemblerWithCppInput(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-c", "-DDEBUG=1", "start.S"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 1 {
		t.Fatalf("got %d commands, want 1: %v", len(got), got)
	}
	backend := got[0]
	if !contains(backend, "assembler-with-cpp") {
		t.Errorf("preprocessable assembly keeps its language tag: %v", backend)
	}
}

func TestLinkerInputPassesThrough(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"precompiled.o"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 1 {
		t.Fatalf("got %d commands, want just the link: %v", len(got), got)
	}
	if !contains(got[0], "precompiled.o") {
		t.Errorf("link command = %v", got[0])
	}
}

func TestPreprocessGoal(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-E", "-o", "out.i", "a.c", "b.c"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 1 {
		t.Fatalf("got %d commands, want 1: %v", len(got), got)
	}
	command := got[0]
	if !contains(command, "-E") || !contains(command, "out.i") {
		t.Errorf("preprocess command = %v", command)
	}
	if !contains(command, "a.c") || !contains(command, "b.c") {
		t.Errorf("preprocess runs over all inputs together: %v", command)
	}
}

func TestExternalToolFailureStopsPipeline(t *testing.T) {
	driver, commands := newTestDriver(t)
	boom := errors.New("transformation failed")
	record := driver.execute
	driver.execute = func(argv []string) error {
		_ = record(argv)
		if argv[0] == "opt" {
			return boom
		}
		return nil
	}

	err := driver.Process([]string{"-c", "main.c"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the tool failure back, got %v", err)
	}
	if len(*commands) != 2 {
		t.Errorf("pipeline must stop at the failure, ran %d commands", len(*commands))
	}
}

func TestEphemeralCleanup(t *testing.T) {
	driver, _ := newTestDriver(t)
	if err := driver.Process([]string{"-c", "main.c"}); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(driver.tempFiles) == 0 {
		t.Fatal("pipeline allocated no ephemeral files")
	}
	recorded := append([]string(nil), driver.tempFiles...)
	for _, name := range recorded {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("ephemeral file %s missing before cleanup: %v", name, err)
		}
	}

	driver.Cleanup()
	for _, name := range recorded {
		if _, err := os.Stat(name); err == nil {
			t.Errorf("ephemeral file %s survived cleanup", name)
		}
	}

	// removing already-absent files is not an error
	driver.tempFiles = recorded
	driver.Cleanup()
}

func TestSaveTempsDerivedNaming(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-save-temps", "-c", "src/main.c"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	bitcode := (*commands)[0]
	if !contains(bitcode, "main.uninstrumented.bc") {
		t.Errorf("derived artifact not named from input: %v", bitcode)
	}
	if len(driver.tempFiles) != 0 {
		t.Errorf("save-temps artifacts must not be registered for cleanup: %v", driver.tempFiles)
	}
}

func TestSaveTempsObjNamesFromOutput(t *testing.T) {
	driver, _ := newTestDriver(t)
	var parsed []Argument
	if err := driver.parse([]string{"-save-temps=obj", "-o", "build/prog"}, &parsed); err != nil {
		t.Fatalf("parse: %v", err)
	}
	input := NewInputFile("src/main.c", "")
	name, err := driver.TemporaryFile(input, ".instrumented.bc")
	if err != nil {
		t.Fatal(err)
	}
	if name != "build/prog.instrumented.bc" {
		t.Errorf("derived name = %q, want build/prog.instrumented.bc", name)
	}
}

func TestHelpGoalRunsBackendHelp(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"--help-clang"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := *commands
	if len(got) != 1 || !contains(got[0], "--help") {
		t.Errorf("help command = %v", got)
	}
}

func TestVerboseFlagSurvivesOnCommandLines(t *testing.T) {
	driver, commands := newTestDriver(t)
	if err := driver.Process([]string{"-v", "main.o"}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !driver.verbose {
		t.Error("-v did not set verbose mode")
	}
	link := (*commands)[0]
	if !contains(link, "-v") {
		t.Errorf("-v must be echoed to the tools as well: %v", link)
	}
}

// Package instructions produces the per-simulator build and run notes
// printed after a successful build. Generation is pure: it reads no files,
// runs no processes and consults the environment only through EnvInput.
package instructions

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Toolchain identifies a supported simulator flow.
type Toolchain string

const (
	// Cadence Incisive: elaborate into a snapshot.
	Cadence Toolchain = "cadence"
	// Synopsys VCS: VPI object linked with +vpi -use_vpiobj.
	Synopsys Toolchain = "synopsys"
	// Icarus Verilog: iverilog-vpi module, then iverilog and vvp.
	Icarus Toolchain = "icarus"
)

// Environment variables overriding the displayed executable names.
const (
	EnvIrun = "SIM_BUILD_IRUN"
	EnvVCS  = "SIM_BUILD_VCS"
)

// Default executable names.
const (
	DefaultIrun = "irun"
	DefaultVCS  = "vcs"
)

// Input holds everything the instructions depend on.
type Input struct {
	Top       string
	RTLPath   string
	OutputDir string
	// WorkDir is where the user returns to after compiling the Icarus module.
	WorkDir string
	// SourceDirs are extra include directories, searched after the RTL dir.
	SourceDirs []string
	IrunBin    string
	VCSBin     string
}

// Section is a heading followed by lines shown indented.
type Section struct {
	Heading string
	Lines   []string
}

// Block is the complete set of notes for one toolchain.
type Block struct {
	Toolchain Toolchain
	Title     string
	Sections  []Section
}

// LookupFunc reads an environment variable, os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// EnvInput returns in with the executable overrides read through lookup.
// Empty values count as unset.
func EnvInput(in Input, lookup LookupFunc) Input {
	if v, ok := lookup(EnvIrun); ok && v != "" {
		in.IrunBin = v
	}
	if v, ok := lookup(EnvVCS); ok && v != "" {
		in.VCSBin = v
	}
	return in
}

// Generate returns one block per toolchain, always in the order Cadence,
// Synopsys, Icarus.
func Generate(in Input) []Block {
	if in.IrunBin == "" {
		in.IrunBin = DefaultIrun
	}
	if in.VCSBin == "" {
		in.VCSBin = DefaultVCS
	}
	return []Block{cadence(in), synopsys(in), icarus(in)}
}

func (in Input) out(name string) string {
	return in.OutputDir + "/" + name
}

func (in Input) includeDirs() []string {
	return append([]string{filepath.Dir(in.RTLPath)}, in.SourceDirs...)
}

func joinFlags(prefix string, dirs []string, sep string) string {
	parts := make([]string, 0, len(dirs))
	for _, d := range dirs {
		parts = append(parts, prefix+sep+d)
	}
	return strings.Join(parts, " ")
}

func cadence(in Input) Block {
	example := fmt.Sprintf("%s %s %s %s -ccargs \"-std=c99\" -top simbuild -elaborate -snapshot simbuild -access +rw -timescale 1ns/1ns %s",
		in.IrunBin, in.RTLPath, in.out("simbuild.v"), in.out("*.c"), joinFlags("-incdir", in.includeDirs(), " "))

	return Block{
		Toolchain: Cadence,
		Title:     "Cadence Incisive (irun)",
		Sections: []Section{
			{
				Heading: "Add the following to your build script (AND REMOVE ANY OTHER TESTBENCH!):",
				Lines: []string{
					in.out("simbuild.v") + ` \`,
					in.out("*.c") + ` \`,
					`-ccargs "-std=c99" \`,
					`-top simbuild \`,
					`-elaborate \`,
					`-snapshot simbuild \`,
					`-access +rw \`,
					`-timescale 1ns/1ns`,
				},
			},
			{
				Heading: "Here is an example which may work for the file you just parsed (add additional -incdir options at the end if required):",
				Lines:   []string{example},
			},
			{
				Heading: "Copy the following directory (produced by irun) to simulation/<target>/cadence/. within your application:",
				Lines:   []string{"INCA_libs"},
			},
		},
	}
}

func synopsys(in Input) Block {
	example := fmt.Sprintf("%s %s %s %s %s -CFLAGS \"-std=c99 -DSIMBUILD_VCS\" +vpi -use_vpiobj %s -timescale=1ns/1ns +define+SIMBUILD_VCD %s",
		in.VCSBin, in.RTLPath, in.out("simbuild.v"), in.out("bridge.c"), in.out("client.c"), in.out("simbuild.c"),
		joinFlags("+incdir", in.includeDirs(), "+"))

	return Block{
		Toolchain: Synopsys,
		Title:     "Synopsys VCS",
		Sections: []Section{
			{
				Heading: "Add the following to your build script (AND REMOVE ANY OTHER TESTBENCH!):",
				Lines: []string{
					in.out("simbuild.v") + ` \`,
					in.out("bridge.c") + ` \`,
					in.out("client.c") + ` \`,
					`-CFLAGS "-std=c99 -DSIMBUILD_VCS" \`,
					`+vpi \`,
					"-use_vpiobj " + in.out("simbuild.c") + ` \`,
					`+define+SIMBUILD_VCD \`,
					`-timescale=1ns/1ns`,
				},
			},
			{
				Heading: `The testbench calls $simbuild_vcs_init only when rendered with "vendor": "synopsys" in sim_build.json.`,
			},
			{
				Heading: "Here is an example which may work for the file you just parsed (add additional +incdir+ options at the end if required):",
				Lines:   []string{example},
			},
			{
				Heading: "Copy the following files (produced by vcs) to simulation/<target>/synopsys/. within your application:",
				Lines:   []string{"simv", "simv.daidir"},
			},
		},
	}
}

func icarus(in Input) Block {
	example := fmt.Sprintf("iverilog %s %s -o simbuild.vvp -DICARUS %s",
		in.RTLPath, in.out("simbuild.v"), joinFlags("-I", in.includeDirs(), " "))

	return Block{
		Toolchain: Icarus,
		Title:     "Icarus Verilog",
		Sections: []Section{
			{
				Heading: "Compile the VPI extension using the following command:",
				Lines:   []string{fmt.Sprintf("cd %s && iverilog-vpi *.c --name=simbuild && cd %s", in.OutputDir, in.WorkDir)},
			},
			{
				Heading: "Add the following to your build script (AND REMOVE ANY OTHER TESTBENCH!):",
				Lines: []string{
					in.out("simbuild.v") + ` \`,
					`-o simbuild.vvp \`,
					`-DSIMBUILD_VCD`,
				},
			},
			{
				Heading: "Here is an example which may work for the file you just parsed (add additional source dirs with more -I options at the end if required):",
				Lines:   []string{example},
			},
			{
				Heading: "Copy the following files to simulation/<target>/icarus/. within your application:",
				Lines:   []string{in.out("simbuild.vpi"), "simbuild.vvp   (produced by the iverilog command)"},
			},
		},
	}
}

package instructions

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const rule = "-----------------------------------------------------------"

type palette struct {
	title   *color.Color
	heading *color.Color
	line    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:   color.New(color.FgCyan, color.Bold),
		heading: color.New(color.FgYellow),
		line:    color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.title, p.heading, p.line} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WriteSummary prints the success banner naming the target definition.
func WriteSummary(w io.Writer, targetDefinition string, useColor bool) error {
	p := newPalette(useColor)
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(p.title.Sprint("Testbench and VPI extension created!"))
	b.WriteString("\n\n")
	b.WriteString("This file can be imported into a top-level DUT model to define the pins:\n\n")
	fmt.Fprintf(&b, "  %s\n\n", p.line.Sprint(targetDefinition))
	b.WriteString("See below for what to do now to create a simulation object for your particular simulator:\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Write prints blocks in order.
func Write(w io.Writer, blocks []Block, useColor bool) error {
	p := newPalette(useColor)
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(rule + "\n")
		b.WriteString(p.title.Sprint(block.Title) + "\n")
		b.WriteString(rule + "\n\n")
		for _, s := range block.Sections {
			b.WriteString(p.heading.Sprint(s.Heading) + "\n\n")
			for _, line := range s.Lines {
				fmt.Fprintf(&b, "  %s\n", p.line.Sprint(line))
			}
			if len(s.Lines) > 0 {
				b.WriteString("\n")
			}
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Package progress renders the stage counter of a conversion run as a bar.
package progress

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// Bar prints one line per stage: the filled bar, the percentage and the label.
type Bar struct {
	w   io.Writer
	bar progress.Model
}

func New(w io.Writer, width int) *Bar {
	return &Bar{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(width)),
	}
}

// Stage reports that stage step of total, named label, has started.
func (b *Bar) Stage(step, total int, label string) {
	pct := 0.0
	if total > 0 {
		pct = float64(step) / float64(total)
	}
	fmt.Fprintf(b.w, "%s %s\n", b.bar.ViewAs(pct), labelStyle.Render(label))
}

// Finish prints the outcome of the run.
func (b *Bar) Finish(err error) {
	if err != nil {
		fmt.Fprintln(b.w, failStyle.Render("❌ Conversion failed: "+err.Error()))
		return
	}
	fmt.Fprintln(b.w, doneStyle.Render("✅ Conversion complete"))
}

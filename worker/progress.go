package worker

import (
	"fmt"
	"io"
	"math"
)

// ProgressPrinter draws a textual progress bar: one "=" per percent and a
// ":NN%" marker after every tenth percent.
//
//	==========:10%
//	==
type ProgressPrinter struct {
	out     io.Writer
	total   int
	percent int
}

// NewProgressPrinter creates a progress printer for total rows
func NewProgressPrinter(out io.Writer, total int) *ProgressPrinter {
	return &ProgressPrinter{out: out, total: total}
}

// Update advances the bar to processed rows. The bar never moves backwards
// and stops at 100%.
func (p *ProgressPrinter) Update(processed int) {
	if p.total <= 0 || p.out == nil {
		return
	}
	target := int(math.Floor(100 * float64(processed) / float64(p.total)))
	if target > 100 {
		target = 100
	}
	for p.percent < target {
		p.percent++
		fmt.Fprint(p.out, "=")
		if p.percent%10 == 0 {
			fmt.Fprintf(p.out, ":%d%%\n", p.percent)
		}
	}
}

// Percent returns the last printed percentage
func (p *ProgressPrinter) Percent() int {
	return p.percent
}

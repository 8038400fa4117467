package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/trainer"
)

// asciiPlot draws a crude vertical bar chart of values (0..1).
func asciiPlot(values []float64) {
	const height = 10 // number of text rows
	n := len(values)
	if n == 0 {
		fmt.Println("no data to plot")
		return
	}
	for row := height; row >= 1; row-- {
		threshold := float64(row) / float64(height)
		var sb strings.Builder
		for _, v := range values {
			if v >= threshold {
				sb.WriteString("█")
			} else {
				sb.WriteByte(' ')
			}
		}
		fmt.Println(sb.String())
	}
	fmt.Println(strings.Repeat("─", n))
	// epoch index every 5 columns
	var sb strings.Builder
	for i := range values {
		if i%5 == 0 {
			sb.WriteString(strconv.Itoa(i % 10))
		} else {
			sb.WriteByte(' ')
		}
	}
	fmt.Println(sb.String())
}

func printConversions(convs []trainer.Conversion) {
	for _, c := range convs {
		fmt.Printf("input:  %-14s (%s)\ntarget: %-14s (%s)\npred:   %-14s bleu=%.4f\n",
			c.Input, c.InTense, c.Reference, c.OutTense, c.Output, c.BLEU)
		fmt.Println(strings.Repeat("-", 40))
	}
}

func printSamples(gen []IO.WordTuple) {
	for _, w := range gen {
		fmt.Printf("%q\n", w[:])
	}
}

// closeSink flushes a metrics sink at exit; like a failed Record, a failed
// close is reported and does not change the exit status.
func closeSink(w io.Writer, path string, c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(w, "metrics: closing %s: %v\n", path, err)
	}
}

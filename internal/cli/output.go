package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Forge/internal/domain"
)

// Output печатает данные в stdout и сообщения в stderr.
//
// В JSON-режиме данные выводятся одним JSON-значением,
// чтобы вывод можно было передать в jq.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

func NewOutput(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит rows таблицей или data в JSON-режиме.
func (o *Output) Print(headers []string, rows [][]string, data any) {
	if o.jsonMode {
		o.JSON(data)
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Run выводит итог run: JSON в stdout или строку в stderr.
func (o *Output) Run(run *domain.Run) {
	if run == nil {
		return
	}
	if o.jsonMode {
		o.JSON(run)
		return
	}
	fmt.Fprintln(o.errW, runSummary(run))
}

// runSummary: "forge: build test (watch) succeeded in 1.2s, 3 tasks, 1 skipped".
func runSummary(run *domain.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "forge: %s (%s) %s in %s",
		strings.Join(run.Targets, " "), run.Trigger,
		strings.ToLower(string(run.Status)), run.Duration().Round(time.Millisecond))

	fmt.Fprintf(&b, ", %d tasks", len(run.Tasks))
	if n := run.Count(domain.TaskStatusSkipped); n > 0 {
		fmt.Fprintf(&b, ", %d skipped", n)
	}
	if n := run.Count(domain.TaskStatusFailed); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	return b.String()
}

func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// Raw печатает msg в stderr без перевода строки.
func (o *Output) Raw(msg string) {
	fmt.Fprint(o.errW, msg)
}

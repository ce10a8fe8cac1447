// Command flowcheck classifies flow vectors offline with the same model
// bundles the server loads.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/veil-waf/flowscan/internal/classify"
	"github.com/veil-waf/flowscan/internal/model"
	"github.com/veil-waf/flowscan/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	modelDir string
	mode     string
	input    string
	samples  bool
	ranking  int
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("flowcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.modelDir, "models", "models", "directory holding the model artifacts")
	fs.StringVar(&opts.mode, "mode", "both", "analysis mode: binary, multi or both")
	fs.StringVar(&opts.input, "file", "-", "file with one vector per line, optionally prefixed by \"name:\" (- for stdin)")
	fs.BoolVar(&opts.samples, "samples", false, "classify the built-in sample vectors instead of -file")
	fs.IntVar(&opts.ranking, "ranking", 0, "print the top N features of each model and exit")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	modes, err := parseModes(opts.mode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger := server.NewLogger(stderr, *logLevel)
	set, err := model.Load(opts.modelDir, logger)
	if err != nil {
		fmt.Fprintln(stderr, "load models:", err)
		return 1
	}
	defer set.Close()
	engine, err := classify.NewEngine(set)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if opts.ranking > 0 {
		writeRanking(stdout, engine, modes, opts.ranking)
		return 0
	}

	var samples []classify.Sample
	if opts.samples {
		samples = classify.Samples
	} else {
		in := stdin
		if opts.input != "-" {
			f, err := os.Open(opts.input)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			defer f.Close()
			in = f
		}
		samples, err = readVectors(in)
		if err != nil {
			fmt.Fprintln(stderr, "read input:", err)
			return 1
		}
	}

	pipeline := classify.NewPipeline(engine, nil, logger)
	rejected := writeReport(context.Background(), stdout, pipeline, modes, samples)
	if rejected > 0 {
		return 3
	}
	return 0
}

func parseModes(s string) ([]classify.Mode, error) {
	if s == "both" {
		return classify.Modes, nil
	}
	m, err := classify.ParseMode(s)
	if err != nil {
		return nil, err
	}
	return []classify.Mode{m}, nil
}

// readVectors reads one vector per line. Lines may carry a "name:" prefix;
// unnamed lines are numbered. Blank lines and # comments are skipped.
func readVectors(r io.Reader) ([]classify.Sample, error) {
	var out []classify.Sample
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), classify.MaxInputLength*4)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
		name, vector, ok := strings.Cut(line, ":")
		if !ok {
			name, vector = "line "+strconv.Itoa(n), line
		}
		out = append(out, classify.Sample{Name: strings.TrimSpace(name), Vector: strings.TrimSpace(vector)})
	}
	return out, sc.Err()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// writeReport classifies every sample in every mode and returns how many
// were rejected.
func writeReport(ctx context.Context, w io.Writer, p *classify.Pipeline, modes []classify.Mode, samples []classify.Sample) int {
	table := newTable(w, []string{"Sample", "Mode", "Verdict", "Confidence", "Reason"})
	rejected := 0
	for _, s := range samples {
		for _, m := range modes {
			res, err := p.Classify(ctx, s.Vector, m)
			if err != nil {
				rejected++
				table.Append([]string{s.Name, m.String(), "Error: " + err.Error(), "", ""})
				continue
			}
			table.Append([]string{s.Name, m.String(), res.Verdict, res.Confidence, res.Reason})
		}
	}
	table.Render()
	return rejected
}

func writeRanking(w io.Writer, e *classify.Engine, modes []classify.Mode, n int) {
	table := newTable(w, []string{"Mode", "Rank", "Feature", "Importance"})
	for _, m := range modes {
		ranking := e.Bundle(m).Ranking
		for i, f := range ranking[:min(n, len(ranking))] {
			table.Append([]string{m.String(), strconv.Itoa(i + 1), f.Name, strconv.FormatFloat(f.Importance, 'f', 4, 64)})
		}
	}
	table.Render()
}

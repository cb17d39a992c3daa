package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bitsmith/internal/diag"
	"bitsmith/internal/driver"
	"bitsmith/internal/layout"
	"bitsmith/internal/script"
)

var (
	convertJobs   int
	convertUI     string
	convertFormat string
)

func init() {
	convertCmd.Flags().IntVar(&convertJobs, "jobs", 0, "worker parallelism (0 = all CPUs)")
	convertCmd.Flags().StringVar(&convertUI, "ui", "auto", "interactive progress (auto|on|off)")
	convertCmd.Flags().StringVar(&convertFormat, "format", "pretty", "output format (pretty|json)")
}

var convertCmd = &cobra.Command{
	Use:   "convert <script.toml>",
	Short: "Materialize the constants of a script into byte images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(convertFormat) {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", convertFormat)
		}

		targets, err := loadExtraTargets(cmd)
		if err != nil {
			return err
		}
		s, err := script.Load(args[0], targets)
		if err != nil {
			return err
		}

		maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
		opts := driver.Options{Jobs: convertJobs, MaxDiagnostics: maxDiags}

		mode, err := readUIMode(convertUI)
		if err != nil {
			return err
		}

		var results []driver.Result
		if shouldUseTUI(mode) && strings.ToLower(convertFormat) == "pretty" {
			results, err = runBatchWithUI(cmd.Context(), "converting "+args[0], s, opts)
		} else {
			results, err = runBatch(cmd.Context(), s, opts)
		}
		if err != nil {
			return err
		}

		if strings.ToLower(convertFormat) == "json" {
			return renderResultsJSON(cmd.OutOrStdout(), s, results)
		}
		renderResultsPretty(cmd.OutOrStdout(), s, results)
		for _, res := range results {
			if res.Bag.HasErrors() {
				return fmt.Errorf("%d of %d constants failed", countFailed(results), len(results))
			}
		}
		return nil
	},
}

func runBatch(ctx context.Context, s *script.Script, opts driver.Options) ([]driver.Result, error) {
	c := converterFor(s)
	return driver.Materialize(ctx, c, s.Reqs, opts)
}

func countFailed(results []driver.Result) int {
	n := 0
	for _, res := range results {
		if res.Bag.HasErrors() {
			n++
		}
	}
	return n
}

func loadExtraTargets(cmd *cobra.Command) ([]layout.Target, error) {
	path, _ := cmd.Flags().GetString("targets")
	if path == "" {
		return nil, nil
	}
	return layout.LoadTargets(path)
}

func renderResultsPretty(out io.Writer, s *script.Script, results []driver.Result) {
	okColor := color.New(color.FgGreen)
	errColor := color.New(color.FgRed)
	warnColor := color.New(color.FgYellow)

	for _, res := range results {
		if res.Value == nil {
			errColor.Fprintf(out, "%s: failed\n", res.Name)
		} else {
			ty := s.Types.String(res.Value.Type())
			okColor.Fprintf(out, "%s: %s, %d bytes\n", res.Name, ty, len(res.Bytes))
			writeHex(out, res.Bytes)
		}
		for _, d := range res.Bag.Items() {
			c := warnColor
			if d.Severity >= diag.SevError {
				c = errColor
			}
			c.Fprintf(out, "  %s: %s\n", d.Code, d.Message)
		}
	}
}

func writeHex(out io.Writer, img []byte) {
	for off := 0; off < len(img); off += 16 {
		end := min(off+16, len(img))
		fmt.Fprintf(out, "  %04x:", off)
		for _, b := range img[off:end] {
			fmt.Fprintf(out, " %02x", b)
		}
		fmt.Fprintln(out)
	}
}

type resultPayload struct {
	Name   string   `json:"name"`
	Type   string   `json:"type,omitempty"`
	Bytes  string   `json:"bytes,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func renderResultsJSON(out io.Writer, s *script.Script, results []driver.Result) error {
	payload := make([]resultPayload, 0, len(results))
	for _, res := range results {
		p := resultPayload{Name: res.Name}
		if res.Value != nil {
			p.Type = s.Types.String(res.Value.Type())
			p.Bytes = fmt.Sprintf("%x", res.Bytes)
		}
		for _, d := range res.Bag.Items() {
			p.Errors = append(p.Errors, fmt.Sprintf("%s: %s", d.Code, d.Message))
		}
		payload = append(payload, p)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
)

func newClassifyCmd(opts *globalOptions, logger *slog.Logger) *cobra.Command {
	var file string
	var workers int

	cmd := &cobra.Command{
		Use:   "classify <text...|->",
		Short: "Classify a request and print the result as JSON",
		Long: `Classify a request and print the result as JSON.

Pass "-" to read the request from stdin. With --file, every non-empty line of
the file is classified and one JSON object per line is printed.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return classifyFile(cmd, opts, logger, file, workers)
			}

			input := strings.Join(args, " ")
			if len(args) == 1 && args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				input = strings.TrimSpace(string(data))
			}
			return classify(cmd, opts, logger, input)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "classify each line of this file (- for stdin)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent requests in --file mode")

	return cmd
}

func classify(cmd *cobra.Command, opts *globalOptions, logger *slog.Logger, input string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.agent.Process(ctx, input)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), intent.UserMessage(err))
		return fmt.Errorf("classifying: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// batchLine is one line of --file output.
type batchLine struct {
	Input   string          `json:"input"`
	Result  *intent.Result  `json:"result,omitempty"`
	Failure *intent.Failure `json:"failure,omitempty"`
}

func classifyFile(cmd *cobra.Command, opts *globalOptions, logger *slog.Logger, path string, workers int) error {
	ctx := cmd.Context()

	inputs, err := readLines(cmd, path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	outcomes := agent.Batch(ctx, st.agent, inputs, workers)

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, o := range outcomes {
		line := batchLine{Input: o.Input, Result: o.Result}
		if o.Err != nil {
			f := intent.Describe(o.Err)
			line.Failure = &f
			failed++
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(outcomes))
	}
	return nil
}

func readLines(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("no requests to classify")
	}
	return lines, nil
}

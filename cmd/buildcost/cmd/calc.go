package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"buildcost/adapters/jobfile"
	"buildcost/core/export"
	"buildcost/core/types"
	"buildcost/internal/config"
	apperrors "buildcost/internal/errors"
)

var (
	inputFile    string
	assignments  []string
	outputFormat string
)

// calcCmd runs one calculation
var calcCmd = &cobra.Command{
	Use:   "calc [calculator-id]",
	Short: "Run a calculator",
	Long: `Run a calculator against the active pricing region and save the result.

Inputs come from a job file (--input, HCL or JSON) and --set assignments;
assignments override the file. The calculator id may be given as an
argument or as the job file's calculator attribute.

Examples:
  buildcost calc concrete-slab-pro --set length=20 --set width=10 --set rebar=true
  buildcost calc --input slab.hcl --format csv > slab.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCalc,
}

func init() {
	calcCmd.Flags().StringVarP(&inputFile, "input", "i", "", "job file (.hcl or .json)")
	calcCmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "input assignment name=value (repeatable)")
	calcCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (text, csv, json)")
}

func runCalc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	job := &jobfile.Job{Inputs: types.Inputs{}}
	if inputFile != "" {
		loaded, err := jobfile.Load(inputFile)
		if err != nil {
			return err
		}
		job = loaded
	}
	if len(args) > 0 {
		job.Calculator = args[0]
	}
	if job.Calculator == "" {
		return apperrors.Invalid("calculator id required: pass it as an argument or set calculator in the job file")
	}
	if job.Region != "" && region == "" {
		config.Get().Pricing.Region = job.Region
	}

	set, err := parseAssignments(assignments)
	if err != nil {
		return err
	}
	for k, v := range set {
		job.Inputs[k] = v
	}

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Calculator(job.Calculator)
	if err != nil {
		return err
	}
	out, err := svc.Calculate(ctx, job.Inputs)
	if err != nil {
		printFieldErrors(err)
		return err
	}
	if !out.Persisted {
		fmt.Fprintln(os.Stderr, "Warning: result was not saved")
	}

	format := outputFormat
	if format == "" {
		format = config.Get().Export.Format
	}
	w := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	}
	return a.Exporter.Export(ctx, w, export.Format(format), out.Result)
}

// parseAssignments turns name=value pairs into inputs. Values that parse
// as finite numbers or booleans keep that type; everything else is a
// string and is left for the calculator to reject.
func parseAssignments(pairs []string) (types.Inputs, error) {
	in := types.Inputs{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, apperrors.Newf(apperrors.TypeValidation, "invalid assignment %q, expected name=value", pair)
		}
		value = strings.TrimSpace(value)

		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			in[name] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			in[name] = b
		} else {
			in[name] = value
		}
	}
	return in, nil
}

func printFieldErrors(err error) {
	for _, f := range apperrors.FieldsOf(err) {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
	}
}

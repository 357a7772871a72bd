package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	rterrors "github.com/dbehnke/rt4d-cps/pkg/errors"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/timer"
)

// modelFormat picks json or yaml from an explicit flag or the file name.
func modelFormat(flag, path string) (string, error) {
	f := strings.ToLower(flag)
	if f == "" {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return "json", nil
		}
		return "yaml", nil
	}
	if f == "yml" {
		f = "yaml"
	}
	if f != "yaml" && f != "json" {
		return "", fmt.Errorf("invalid format '%s'; must be 'yaml' or 'json'", flag)
	}
	return f, nil
}

func parseLayout(name string) (codeplug.Layout, error) {
	switch strings.ToLower(name) {
	case "legacy":
		return codeplug.LayoutLegacy, nil
	case "beta41":
		return codeplug.LayoutBeta41, nil
	default:
		return 0, fmt.Errorf("invalid layout '%s'; must be 'legacy' or 'beta41'", name)
	}
}

func loadImage(path string, log *logger.Logger) ([]byte, *codeplug.Codeplug, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, rterrors.WrapCodeplugError(err, path)
	}
	cp, err := codeplug.NewParser(log).Parse(data)
	if err != nil {
		return nil, nil, rterrors.WrapCodeplugError(err, path)
	}
	return data, cp, nil
}

func writeModel(w io.Writer, cp interface{}, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cp); err != nil {
		return err
	}
	return enc.Close()
}

func readModel(path, format string) (*codeplug.Codeplug, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cp := codeplug.New()
	if format == "json" {
		err = json.Unmarshal(data, cp)
	} else {
		err = yaml.Unmarshal(data, cp)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cp, nil
}

// writeOutput writes data to path, or to w when path is "" or "-".
func writeOutput(w io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(w)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, s codeplug.Summary) {
	fmt.Fprintf(w, "Layout:          %s\n", s.Layout)
	fmt.Fprintf(w, "Radio name:      %s\n", s.RadioName)
	fmt.Fprintf(w, "Radio ID:        %d\n", s.RadioID)
	fmt.Fprintf(w, "Channels:        %d\n", s.Channels)
	fmt.Fprintf(w, "Contacts:        %d\n", s.Contacts)
	fmt.Fprintf(w, "Group lists:     %d\n", s.GroupLists)
	fmt.Fprintf(w, "Zones:           %d\n", s.Zones)
	fmt.Fprintf(w, "Encryption keys: %d\n", s.EncryptionKeys)
	fmt.Fprintf(w, "FM presets:      %d\n", s.FMPresets)
}

// printTimers shows the settings' timer indices as the radio menu does.
func printTimers(w io.Writer, s *codeplug.RadioSettings) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Lock timer:      %s\n", timer.IndexLabel(s.LockTimer))
	fmt.Fprintf(w, "LED timer:       %s\n", timer.IndexLabel(s.LEDTimer))
	fmt.Fprintf(w, "Menu timer:      %s\n", timer.IndexLabel(s.MenuTimer))
	fmt.Fprintf(w, "Power save:      %s\n", timer.IndexLabel(s.PowerSaveStart))
}

func printChannels(w io.Writer, cp *codeplug.Codeplug) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tNAME\tMODE\tRX MHZ\tTX MHZ\tTOT\tDETAIL")
	for _, ch := range cp.Channels {
		detail := ""
		tot := ch.AnalogTOT
		if ch.IsDigital() {
			tot = ch.TOT
			detail = fmt.Sprintf("TS%d CC%d", ch.TimeSlot, ch.ColorCode)
			if c := cp.ContactByID(ch.ContactID); c != nil {
				detail += " " + c.Name
			}
		} else if ch.RxTone != "" || ch.TxTone != "" {
			detail = fmt.Sprintf("rx %s tx %s", orDash(ch.RxTone), orDash(ch.TxTone))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.5f\t%.5f\t%s\t%s\n",
			ch.Position, ch.Name, ch.Mode, ch.RxMHz(), ch.TxMHz(), timer.IndexLabel(tot), detail)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type infoFlags struct {
	output   string
	channels bool
}

func newInfoCmd(root *rootFlags) *cobra.Command {
	flags := &infoFlags{}

	cmd := &cobra.Command{
		Use:   "info <image.4rdmf>",
		Short: "Summarise a codeplug image",
		Example: `  rt4d info backup.4rdmf
  rt4d info backup.4rdmf --channels
  rt4d info backup.4rdmf --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != "text" && flags.output != "json" {
				return fmt.Errorf("invalid output format '%s'; must be 'text' or 'json'", flags.output)
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			_, cp, err := loadImage(args[0], a.log)
			if err != nil {
				return err
			}
			if flags.output == "json" {
				return writeModel(cmd.OutOrStdout(), cp.Summary(), "json")
			}
			printSummary(cmd.OutOrStdout(), cp.Summary())
			printTimers(cmd.OutOrStdout(), cp.Settings)
			if flags.channels {
				fmt.Fprintln(cmd.OutOrStdout())
				return printChannels(cmd.OutOrStdout(), cp)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.output, "output", "text", "Output format: text|json")
	cmd.Flags().BoolVar(&flags.channels, "channels", false, "List channels")
	return cmd
}

type exportFlags struct {
	output string
	format string
}

func newExportCmd(root *rootFlags) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <image.4rdmf>",
		Short: "Decode a codeplug image to YAML or JSON",
		Example: `  rt4d export backup.4rdmf -o backup.yaml
  rt4d export backup.4rdmf --format json > backup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := modelFormat(flags.format, flags.output)
			if err != nil {
				return err
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			_, cp, err := loadImage(args[0], a.log)
			if err != nil {
				return err
			}
			a.metrics.ImageParsed()
			return writeOutput(cmd.OutOrStdout(), flags.output, func(w io.Writer) error {
				return writeModel(w, cp, format)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: yaml|json (default: from file extension, else yaml)")
	return cmd
}

type importFlags struct {
	output string
	format string
	layout string
}

func newImportCmd(root *rootFlags) *cobra.Command {
	flags := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <codeplug.yaml>",
		Short: "Encode a YAML or JSON codeplug into an image",
		Long: `Encode a codeplug model into a .4rdmf image. Slot numbers are reassigned
from the model's order; channel positions are kept where they are unique.

Use --layout to convert between the legacy and beta41 record formats.`,
		Example: `  rt4d import backup.yaml -o new.4rdmf
  rt4d import backup.yaml -o new.4rdmf --layout beta41`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output == "" {
				return fmt.Errorf("required flag --output not set")
			}
			format, err := modelFormat(flags.format, args[0])
			if err != nil {
				return err
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			cp, err := readModel(args[0], format)
			if err != nil {
				return rterrors.WrapCodeplugError(err, args[0])
			}
			if flags.layout != "" {
				layout, err := parseLayout(flags.layout)
				if err != nil {
					return err
				}
				cp.ConvertLayout(layout)
			}
			img, err := codeplug.Serialize(cp)
			if err != nil {
				a.metrics.CodecError()
				return rterrors.WrapCodeplugError(err, args[0])
			}
			a.metrics.ImageSerialized()
			if err := os.WriteFile(flags.output, img, 0o644); err != nil {
				return err
			}
			a.log.Info("Wrote codeplug image",
				logger.String("path", flags.output),
				logger.String("layout", cp.Layout().String()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Image file to write (required)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Input format: yaml|json (default: from file extension, else yaml)")
	cmd.Flags().StringVar(&flags.layout, "layout", "", "Convert to layout: legacy|beta41")
	return cmd
}

type beta41Flags struct {
	set     bool
	clear   bool
	convert bool
	output  string
}

func newBeta41Cmd(root *rootFlags) *cobra.Command {
	flags := &beta41Flags{}

	cmd := &cobra.Command{
		Use:   "beta41 <image.4rdmf>",
		Short: "Show, set or clear the beta41 layout marker",
		Long: `Without flags, report whether the image carries the beta41 marker.

--set and --clear only stamp or erase the marker; records are left as they
are. Add --convert to re-encode every record for the new layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := flags.set
			if set && flags.clear {
				return fmt.Errorf("--set and --clear are mutually exclusive")
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return rterrors.WrapCodeplugError(err, path)
			}
			if !set && !flags.clear {
				layout := codeplug.LayoutFor(codeplug.IsBeta41(data))
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, layout)
				return nil
			}

			out := flags.output
			if out == "" {
				out = path
			}
			if flags.convert {
				cp, err := codeplug.NewParser(a.log).Parse(data)
				if err != nil {
					return rterrors.WrapCodeplugError(err, path)
				}
				cp.ConvertLayout(codeplug.LayoutFor(set))
				if data, err = codeplug.Serialize(cp); err != nil {
					return rterrors.WrapCodeplugError(err, path)
				}
			} else if err := codeplug.SetBeta41(data, set); err != nil {
				return rterrors.WrapCodeplugError(err, path)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", out, codeplug.LayoutFor(set))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.set, "set", false, "Stamp the beta41 marker")
	cmd.Flags().BoolVar(&flags.clear, "clear", false, "Erase the beta41 marker")
	cmd.Flags().BoolVar(&flags.convert, "convert", false, "Re-encode records for the new layout")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to this file instead of modifying the image in place")
	return cmd
}

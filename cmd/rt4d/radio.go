package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	rterrors "github.com/dbehnke/rt4d-cps/pkg/errors"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/messages"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

func newRadioCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radio",
		Short: "Read from and write to a radio over the programming cable",
	}
	cmd.AddCommand(newRadioReadCmd(root))
	cmd.AddCommand(newRadioWriteCmd(root))
	cmd.AddCommand(newRadioBankCmd(root))
	cmd.AddCommand(newRadioMessagesCmd(root))
	cmd.AddCommand(newRadioPortsCmd())
	return cmd
}

// interruptContext is cancelled on Ctrl-C so transfers stop between blocks.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// saveSnapshot stores img in the snapshot table. Failures are logged; a
// transfer never fails because the database is unavailable.
func (a *app) saveSnapshot(label string, img []byte) string {
	db, err := a.openDB()
	if err != nil {
		a.log.Warn("Snapshot not saved", logger.Error(err))
		return ""
	}
	snap := &database.Snapshot{
		Label:  label,
		Port:   a.cfg.Serial.Port,
		Beta41: codeplug.IsBeta41(img),
		Image:  img,
	}
	if cp, err := codeplug.NewParser(a.log).Parse(img); err == nil {
		sum := cp.Summary()
		snap.Channels = sum.Channels
		snap.Contacts = sum.Contacts
	}
	if err := database.NewSnapshotRepository(db.GetDB()).Create(snap); err != nil {
		a.log.Warn("Snapshot not saved", logger.Error(err))
		return ""
	}
	return snap.ID
}

type radioReadFlags struct {
	output     string
	noSnapshot bool
}

func newRadioReadCmd(root *rootFlags) *cobra.Command {
	flags := &radioReadFlags{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read the codeplug from the radio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output == "" {
				return fmt.Errorf("required flag --output not set")
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := interruptContext(cmd)
			defer cancel()

			radio, done, err := a.openRadio()
			if err != nil {
				return err
			}
			img, err := radio.ReadImage(ctx, progressPrinter(cmd.ErrOrStderr(), "Reading"))
			done()
			if err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "read")
			}

			if err := os.WriteFile(flags.output, img, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s layout)\n", flags.output, codeplug.LayoutFor(codeplug.IsBeta41(img)))
			if !flags.noSnapshot {
				if id := a.saveSnapshot("read", img); id != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s\n", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Image file to write (required)")
	cmd.Flags().BoolVar(&flags.noSnapshot, "no-snapshot", false, "Do not store a copy in the database")
	return cmd
}

type radioWriteFlags struct {
	backup bool
}

func newRadioWriteCmd(root *rootFlags) *cobra.Command {
	flags := &radioWriteFlags{}

	cmd := &cobra.Command{
		Use:   "write <image.4rdmf>",
		Short: "Write a codeplug image to the radio",
		Long: `Write a codeplug image to the radio. The image is decoded first so a
corrupt file is rejected before anything is sent. With --backup (the
default) the radio's current codeplug is read and stored as a snapshot
before it is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			img, _, err := loadImage(args[0], a.log)
			if err != nil {
				return err
			}

			ctx, cancel := interruptContext(cmd)
			defer cancel()

			radio, done, err := a.openRadio()
			if err != nil {
				return err
			}
			defer done()

			if flags.backup {
				prev, err := radio.ReadImage(ctx, progressPrinter(cmd.ErrOrStderr(), "Backing up"))
				if err != nil {
					return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "read")
				}
				if id := a.saveSnapshot("before write", prev); id != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Backup snapshot %s\n", id)
				}
			}

			if err := radio.WriteImage(ctx, img, progressPrinter(cmd.ErrOrStderr(), "Writing")); err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "write")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.backup, "backup", true, "Snapshot the radio's codeplug before writing")
	return cmd
}

func newRadioBankCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bank",
		Short: "Show which settings bank the radio is using",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			radio, done, err := a.openRadio()
			if err != nil {
				return err
			}
			defer done()

			boot, err := radio.IsBootloader()
			if err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "probe")
			}
			if boot {
				return rterrors.WrapSerialError(uart.ErrBootloader, a.cfg.Serial.Port, "probe")
			}

			bank, err := radio.SelectSettingsBank(cmd.Context())
			if err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "read")
			}
			// Bank 0 is also the fallback when neither bank is marked.
			marker, err := radio.ReadRegion(cmd.Context(), bank+uint32(codeplug.Beta41MagicOffset), len(codeplug.Beta41Magic), nil)
			if err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "read")
			}
			layout := codeplug.LayoutFor(string(marker) == codeplug.Beta41Magic)
			fmt.Fprintf(cmd.OutOrStdout(), "Settings bank 0x%06X (%s)\n", bank, layout)
			return nil
		},
	}
}

type radioMessagesFlags struct {
	output string
	load   string
}

// messageFile is the YAML form of the four message regions.
type messageFile map[string][]*messages.Message

func newRadioMessagesCmd(root *rootFlags) *cobra.Command {
	flags := &radioMessagesFlags{}

	cmd := &cobra.Command{
		Use:   "messages [region...]",
		Short: "Read or write stored text messages",
		Long: `Read the presets, drafts, inbox and outbox regions to YAML, or with --load
write regions from a YAML file. Name regions to limit the transfer.`,
		Example: `  rt4d radio messages -o messages.yaml
  rt4d radio messages presets --load presets.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := messageTypes(args)
			if err != nil {
				return err
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			var file messageFile
			if flags.load != "" {
				data, err := os.ReadFile(flags.load)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(data, &file); err != nil {
					return fmt.Errorf("decode %s: %w", flags.load, err)
				}
			}

			ctx, cancel := interruptContext(cmd)
			defer cancel()

			radio, done, err := a.openRadio()
			if err != nil {
				return err
			}
			defer done()

			if flags.load != "" {
				return writeMessages(ctx, cmd.OutOrStdout(), radio, types, file)
			}

			out := messageFile{}
			for _, t := range types {
				region, err := uart.MessageRegion(t)
				if err != nil {
					return err
				}
				data, err := radio.ReadRegion(ctx, region.Address, region.Size, nil)
				if err != nil {
					return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "read")
				}
				store := messages.NewStore()
				store.Load(t, data)
				out[t.String()] = store.Messages(t)
			}
			return writeOutput(cmd.OutOrStdout(), flags.output, func(w io.Writer) error {
				return writeModel(w, out, "yaml")
			})
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "YAML file to write (default: stdout)")
	cmd.Flags().StringVar(&flags.load, "load", "", "YAML file to write to the radio")
	return cmd
}

func messageTypes(names []string) ([]messages.Type, error) {
	if len(names) == 0 {
		types := make([]messages.Type, 0, len(messages.Regions))
		for _, r := range messages.Regions {
			types = append(types, r.Type)
		}
		return types, nil
	}
	types := make([]messages.Type, 0, len(names))
	for _, n := range names {
		t, err := messages.ParseType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func writeMessages(ctx context.Context, w io.Writer, radio *uart.Radio, types []messages.Type, file messageFile) error {
	for _, t := range types {
		msgs, ok := file[t.String()]
		if !ok {
			continue
		}
		store := messages.NewStore()
		for _, m := range msgs {
			m.Type = t
			if err := store.Add(m); err != nil {
				return err
			}
		}
		region, err := uart.MessageRegion(t)
		if err != nil {
			return err
		}
		if err := radio.WriteRegion(ctx, region, store.Region(t), nil); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %d %s\n", store.Count(t), t)
	}
	return nil
}

func newRadioPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := uart.ListPorts()
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/dbehnke/rt4d-cps/pkg/addressbook"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	rterrors "github.com/dbehnke/rt4d-cps/pkg/errors"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/radioid"
)

func newAddressBookCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "addressbook",
		Aliases: []string{"ab"},
		Short:   "Manage the DMR address book",
	}
	cmd.AddCommand(newABImportCmd(root))
	cmd.AddCommand(newABSyncCmd(root))
	cmd.AddCommand(newABExportCmd(root))
	cmd.AddCommand(newABUploadCmd(root))
	cmd.AddCommand(newABLookupCmd(root))
	cmd.AddCommand(newABFilterCmd())
	return cmd
}

// contactStore opens the database and returns its contact repository.
func (a *app) contactStore() (*database.ContactRepository, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return database.NewContactRepository(db.GetDB()), nil
}

func (a *app) syncer(repo *database.ContactRepository, onImport func(string, int)) *radioid.Syncer {
	return radioid.NewSyncer(radioid.Config{
		URL:         a.cfg.AddressBook.SourceURL,
		Interval:    a.cfg.AddressBook.SyncInterval,
		BatchSize:   a.cfg.AddressBook.BatchSize,
		MaxContacts: a.cfg.AddressBook.MaxContacts,
		OnImport:    onImport,
	}, repo, a.log, a.metrics)
}

// storedBook loads the stored contacts for country ("" for all).
func storedBook(repo *database.ContactRepository, country string) (*addressbook.Book, error) {
	rows, err := repo.All(country)
	if err != nil {
		return nil, err
	}
	book := addressbook.NewBook()
	for i := range rows {
		book.Add(rows[i].GlobalContact())
	}
	return book, nil
}

func newABImportCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <users.csv>",
		Short: "Import a DMR user CSV into the address book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			repo, err := a.contactStore()
			if err != nil {
				return err
			}
			n, err := a.syncer(repo, nil).Import(f, "csv")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d contacts\n", n)
			return nil
		},
	}
}

func newABSyncCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the RadioID.net user database into the address book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.contactStore()
			if err != nil {
				return err
			}
			ctx, cancel := interruptContext(cmd)
			defer cancel()

			if err := a.syncer(repo, nil).Sync(ctx); err != nil {
				return err
			}
			n, err := repo.Count()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Address book holds %d contacts\n", n)
			return nil
		},
	}
}

type abExportFlags struct {
	output  string
	country string
	radio   bool
}

func newABExportCmd(root *rootFlags) *cobra.Command {
	flags := &abExportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the address book as CSV",
		Long: `Export the stored address book. By default a UTF-8 CSV with a header row
is written; --radio writes the headerless GBK format the radio accepts.`,
		Example: `  rt4d addressbook export -o users.csv
  rt4d addressbook export --country "United States" --radio -o radio.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			country := flags.country
			if !cmd.Flags().Changed("country") {
				country = a.cfg.AddressBook.Country
			}
			repo, err := a.contactStore()
			if err != nil {
				return err
			}
			book, err := storedBook(repo, country)
			if err != nil {
				return err
			}
			if book.Len() == 0 {
				return fmt.Errorf("no contacts to export; run `rt4d addressbook sync` or `rt4d addressbook import` first")
			}

			return writeOutput(cmd.OutOrStdout(), flags.output, func(w io.Writer) error {
				if !flags.radio {
					return addressbook.ExportCSV(w, book)
				}
				data, err := addressbook.ExportRadio(book)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&flags.country, "country", "", "Only export contacts from this country (default: addressbook.country)")
	cmd.Flags().BoolVar(&flags.radio, "radio", false, "Write the radio's GBK upload format")
	return cmd
}

type abUploadFlags struct {
	country string
}

func newABUploadCmd(root *rootFlags) *cobra.Command {
	flags := &abUploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload [users.csv]",
		Short: "Write the address book to the radio",
		Long: `Write contacts to the radio's address book flash. With a CSV argument the
file is parsed and uploaded directly; otherwise the stored address book is
used, optionally limited to one country.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			var book *addressbook.Book
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				book, err = addressbook.Parse(f, a.cfg.AddressBook.MaxContacts, a.log)
				_ = f.Close()
				if err != nil {
					return err
				}
			} else {
				country := flags.country
				if !cmd.Flags().Changed("country") {
					country = a.cfg.AddressBook.Country
				}
				repo, err := a.contactStore()
				if err != nil {
					return err
				}
				if book, err = storedBook(repo, country); err != nil {
					return err
				}
			}
			if book.Len() == 0 {
				return fmt.Errorf("no contacts to upload")
			}

			data, err := addressbook.ExportRadio(book)
			if err != nil {
				return err
			}
			a.log.Info("Uploading address book",
				logger.Int("contacts", book.Len()),
				logger.Int("bytes", len(data)))

			ctx, cancel := interruptContext(cmd)
			defer cancel()

			radio, done, err := a.openRadio()
			if err != nil {
				return err
			}
			defer done()

			if err := radio.WriteAddressBook(ctx, data, progressPrinter(cmd.ErrOrStderr(), "Uploading")); err != nil {
				return rterrors.WrapSerialError(err, a.cfg.Serial.Port, "address book write")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d contacts\n", book.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.country, "country", "", "Only upload contacts from this country (default: addressbook.country)")
	return cmd
}

func newABLookupCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <dmr-id|callsign|term>",
		Short: "Find contacts in the address book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.contactStore()
			if err != nil {
				return err
			}

			var c *database.Contact
			if id, perr := strconv.ParseUint(args[0], 10, 32); perr == nil {
				c, err = repo.GetByDMRID(uint32(id))
			} else {
				c, err = repo.GetByCallsign(args[0])
			}
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), c.GlobalContact().String())
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			found, err := repo.Search(args[0], 20)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return fmt.Errorf("no contact matches %q", args[0])
			}
			for i := range found {
				fmt.Fprintln(cmd.OutOrStdout(), found[i].GlobalContact().String())
			}
			return nil
		},
	}
}

type abFilterFlags struct {
	output  string
	columns string
}

func newABFilterCmd() *cobra.Command {
	flags := &abFilterFlags{}

	cmd := &cobra.Command{
		Use:   "filter <users.csv>",
		Short: "Reshape a CSV by keeping or combining columns",
		Long: `Reshape a CSV before import. Without --columns a RadioID.net export is
reduced to the columns the radio uses, with first and last name combined.

--columns takes 1-based numbers, ranges and header names, e.g. "1,2,4-6,Country",
or "all".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			header, err := addressbook.ReadHeader(f)
			if err != nil {
				return err
			}
			var transforms []addressbook.ColumnTransform
			if flags.columns == "" {
				transforms, err = addressbook.DMRTransform(header)
			} else {
				transforms, err = addressbook.SelectColumns(header, flags.columns)
			}
			if err != nil {
				return err
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}

			var rows int
			err = writeOutput(cmd.OutOrStdout(), flags.output, func(w io.Writer) error {
				rows, err = addressbook.Filter(f, w, transforms)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows\n", rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&flags.columns, "columns", "", "Columns to keep (default: RadioID.net reshaping)")
	return cmd
}

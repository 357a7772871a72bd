package addressbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/dbehnke/rt4d-cps/pkg/logger"
)

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("empty CSV file")

// ExportHeader is the header row written by ExportCSV.
var ExportHeader = []string{"Radio ID", "CallSign", "Name", "City", "State", "Country", "Remarks"}

// columns maps contact fields to CSV column indices. -1 means absent.
type columns struct {
	id, callsign, name, first, last, city, state, country, remarks int
}

// detectColumns finds contact fields in a header row. Without a
// recognisable ID column the first column is assumed.
func detectColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case strings.Contains(col, "radio") && strings.Contains(col, "id"),
			col == "dmr_id", col == "id", col == "radioid":
			c.id = i
		case strings.Contains(col, "call"):
			c.callsign = i
		case col == "name":
			c.name = i
		case col == "firstname", col == "first name", col == "fname", col == "first_name":
			c.first = i
		case col == "lastname", col == "last name", col == "lname", col == "last_name", col == "surname":
			c.last = i
		case col == "city", col == "town":
			c.city = i
		case col == "state", col == "province", col == "region":
			c.state = i
		case col == "country", col == "nation":
			c.country = i
		case col == "remarks", col == "comment", col == "comments", col == "note", col == "notes":
			c.remarks = i
		}
	}
	if c.id < 0 {
		c.id = 0
	}
	return c
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow builds a contact from a row. Rows without a numeric ID are
// rejected.
func (c columns) parseRow(row []string) (GlobalContact, error) {
	idStr := field(row, c.id)
	if idStr == "" {
		return GlobalContact{}, errors.New("missing DMR ID")
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return GlobalContact{}, fmt.Errorf("invalid DMR ID %q", idStr)
	}

	name := field(row, c.name)
	if name == "" {
		name = strings.TrimSpace(field(row, c.first) + " " + field(row, c.last))
	}
	return NewGlobalContact(id,
		field(row, c.callsign),
		name,
		field(row, c.city),
		field(row, c.state),
		field(row, c.country),
		field(row, c.remarks))
}

// textReader returns a reader yielding UTF-8. A leading BOM is dropped and
// input that is not valid UTF-8 is read as Latin-1.
func textReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, 64*1024)
	head, _ := br.Peek(64 * 1024)
	if bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
		return br
	}
	if utf8.Valid(trimPartialRune(head)) {
		return br
	}
	return transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
}

// trimPartialRune drops a rune cut off at the end of a peek window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

// Parse reads a DMR user CSV. Columns are located from the header; rows
// that fail to parse are logged and skipped. Parsing stops after max
// contacts when max > 0. The result is sorted by DMR ID.
func Parse(r io.Reader, max int, log *logger.Logger) (*Book, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("addressbook")

	reader := csv.NewReader(textReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := detectColumns(header)

	book := &Book{}
	lineNum := 1
	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("Error reading CSV line", logger.Int("line", lineNum), logger.Error(err))
			continue
		}
		if len(record) < 2 {
			continue
		}

		c, err := cols.parseRow(record)
		if err != nil {
			log.Debug("Skipping CSV row", logger.Int("line", lineNum), logger.Error(err))
			continue
		}
		book.Add(c)
		if max > 0 && book.Len() >= max {
			break
		}
	}

	book.SortByID()
	log.Info("Parsed address book", logger.Int("contacts", book.Len()))
	return book, nil
}

// ExportCSV writes the book with ExportHeader as UTF-8 CSV.
func ExportCSV(w io.Writer, b *Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, c := range b.contacts {
		row := []string{
			strconv.FormatUint(uint64(c.DMRID), 10),
			c.Callsign, c.Name, c.City, c.State, c.Country, c.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportRadio renders the book in the upload format: six comma-separated
// columns per line (no header, no remarks) encoded as GBK. Characters GBK
// cannot represent become '?'.
func ExportRadio(b *Book) ([]byte, error) {
	lines := make([]string, 0, len(b.contacts))
	for _, c := range b.contacts {
		lines = append(lines, strings.Join([]string{
			strconv.FormatUint(uint64(c.DMRID), 10),
			c.Callsign, c.Name, c.City, c.State, c.Country,
		}, ","))
	}
	enc := encoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())
	out, _, err := transform.Bytes(enc, []byte(strings.Join(lines, "\n")))
	if err != nil {
		return nil, fmt.Errorf("encode GBK: %w", err)
	}
	return out, nil
}

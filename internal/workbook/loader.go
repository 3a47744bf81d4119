package workbook

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/palmsuites/invoicegen/internal/billing"
	ierr "github.com/palmsuites/invoicegen/internal/errors"
)

// Workbook is an opened xlsx file. The caller owns it and must Close.
type Workbook struct {
	f      *excelize.File
	sheets []string
}

// Open reads a workbook from disk. A file excelize cannot parse is a
// data-format error, surfaced before any rendering starts.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("the uploaded file is not a readable workbook").
			Mark(ierr.ErrDataFormat)
	}
	return &Workbook{f: f, sheets: f.GetSheetList()}, nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetNames returns the workbook's ordered sheet list.
func (w *Workbook) SheetNames() []string {
	return w.sheets
}

// DataRows reads the data sheet, selected as the offsetFromEnd-th sheet
// counting back from the end of the sheet list (1 is the last sheet).
// An offset outside the list is a hard error; guessing a neighboring
// sheet would silently bill from the wrong month.
func (w *Workbook) DataRows(offsetFromEnd int) ([]billing.RawRow, error) {
	idx := len(w.sheets) - offsetFromEnd
	if offsetFromEnd < 1 || idx < 0 {
		return nil, ierr.NewErrorf("invalid sheet index: offset %d from end of %d sheets", offsetFromEnd, len(w.sheets)).
			WithHint("the configured sheet offset does not match this workbook").
			Mark(ierr.ErrDataFormat)
	}
	return w.sheetRows(w.sheets[idx])
}

// sheetRows converts a sheet into header-keyed rows. The first row is
// the header; missing trailing cells read as empty strings.
func (w *Workbook) sheetRows(sheet string) ([]billing.RawRow, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("reading sheet %q", sheet).
			Mark(ierr.ErrDataFormat)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := rows[0]
	out := make([]billing.RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(billing.RawRow, len(headers))
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Deposits reads the deposit table from the very last sheet, keyed by
// canonical room key. Rows with an unparsable amount contribute zero;
// the lookup degrades, it does not fail.
func (w *Workbook) Deposits() (map[string]decimal.Decimal, error) {
	if len(w.sheets) == 0 {
		return nil, ierr.NewError("workbook has no sheets").Mark(ierr.ErrDataFormat)
	}
	rows, err := w.f.GetRows(w.sheets[len(w.sheets)-1])
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("reading deposit sheet").
			Mark(ierr.ErrDataFormat)
	}
	if len(rows) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	roomCol, depositCol := depositColumns(rows[0])
	deposits := make(map[string]decimal.Decimal)
	for _, cells := range rows[1:] {
		if roomCol >= len(cells) {
			continue
		}
		room := strings.TrimSpace(cells[roomCol])
		if room == "" {
			continue
		}
		amount := decimal.Zero
		if depositCol < len(cells) {
			if d, err := decimal.NewFromString(strings.TrimSpace(cells[depositCol])); err == nil {
				amount = d
			}
		}
		deposits[billing.CanonicalRoomKey(room)] = amount
	}
	return deposits, nil
}

// depositColumns locates the room and deposit columns by header,
// falling back to the first two columns for headerless sheets.
func depositColumns(headers []string) (roomCol, depositCol int) {
	roomCol, depositCol = 0, 1
	for i, h := range headers {
		switch {
		case strings.Contains(strings.ToLower(h), "room"):
			roomCol = i
		case strings.Contains(strings.ToLower(h), "deposit"):
			depositCol = i
		}
	}
	return roomCol, depositCol
}

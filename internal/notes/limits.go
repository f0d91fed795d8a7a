package notes

import (
	"unicode/utf8"

	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/notetable"
)

const (
	// MaxBodyBytes matches the CHECK constraint on notes.body.
	MaxBodyBytes = 1 << 20

	// MaxTitleChars caps titles, in characters.
	MaxTitleChars = 500

	// MaxImagesPerNote caps attachments on one note.
	MaxImagesPerNote = 50

	// MaxTablesPerNote caps tables on one note.
	MaxTablesPerNote = 20

	// MaxTableRows caps rows in one table.
	MaxTableRows = 200

	// MaxCellChars caps one table cell, in characters.
	MaxCellChars = 2000
)

func checkTitle(title string) error {
	if !utf8.ValidString(title) {
		return errs.New(errs.InvalidArgument, "title is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleChars {
		return errs.Newf(errs.InvalidArgument, "title is %d characters, limit is %d", n, MaxTitleChars)
	}
	return nil
}

func checkBody(body string) error {
	if !utf8.ValidString(body) {
		return errs.New(errs.InvalidArgument, "body is not valid UTF-8")
	}
	if len(body) > MaxBodyBytes {
		return errs.Newf(errs.TooLarge, "body is %d bytes, limit is %d", len(body), MaxBodyBytes)
	}
	return nil
}

func checkCell(value string) error {
	if !utf8.ValidString(value) {
		return errs.New(errs.InvalidArgument, "cell is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(value); n > MaxCellChars {
		return errs.Newf(errs.InvalidArgument, "cell is %d characters, limit is %d", n, MaxCellChars)
	}
	return nil
}

func checkCanAddTable(tables []notetable.Table) error {
	if len(tables) >= MaxTablesPerNote {
		return errs.Newf(errs.InvalidArgument, "a note holds at most %d tables", MaxTablesPerNote)
	}
	return nil
}

func checkCanAddRow(t notetable.Table) error {
	if len(t.Rows) >= MaxTableRows {
		return errs.Newf(errs.InvalidArgument, "a table holds at most %d rows", MaxTableRows)
	}
	return nil
}

func checkCanAddImage(images []string) error {
	if len(images) >= MaxImagesPerNote {
		return errs.Newf(errs.InvalidArgument, "a note holds at most %d images", MaxImagesPerNote)
	}
	return nil
}

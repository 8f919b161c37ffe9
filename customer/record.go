// Package customer holds the typed input record of the prediction endpoint.
package customer

import (
	"errors"
	"fmt"
	"math"

	"termdeposit/ml"
)

// Record is one bank customer as sent to /predict.
type Record struct {
	Age       int       `json:"age"`
	Job       Job       `json:"job"`
	Marital   Marital   `json:"marital"`
	Education Education `json:"education"`
	Default   YesNo     `json:"default"`
	Balance   float64   `json:"balance"`
	Housing   YesNo     `json:"housing"`
	Loan      YesNo     `json:"loan"`
	Contact   Contact   `json:"contact"`
	Day       int       `json:"day"`
	Month     Month     `json:"month"`
	Duration  int       `json:"duration"`
	Campaign  int       `json:"campaign"`
	Pdays     int       `json:"pdays"`
	Previous  int       `json:"previous"`
	Poutcome  Poutcome  `json:"poutcome"`
}

// Cells maps the record onto table cells keyed by column name. Binary flags
// stay as "yes"/"no" strings; encoding happens downstream.
func (r Record) Cells() map[string]ml.Cell {
	return map[string]ml.Cell{
		"age":       ml.NumberCell(float64(r.Age)),
		"job":       ml.StringCell(string(r.Job)),
		"marital":   ml.StringCell(string(r.Marital)),
		"education": ml.StringCell(string(r.Education)),
		"default":   ml.StringCell(string(r.Default)),
		"balance":   ml.NumberCell(r.Balance),
		"housing":   ml.StringCell(string(r.Housing)),
		"loan":      ml.StringCell(string(r.Loan)),
		"contact":   ml.StringCell(string(r.Contact)),
		"day":       ml.NumberCell(float64(r.Day)),
		"month":     ml.StringCell(string(r.Month)),
		"duration":  ml.NumberCell(float64(r.Duration)),
		"campaign":  ml.NumberCell(float64(r.Campaign)),
		"pdays":     ml.NumberCell(float64(r.Pdays)),
		"previous":  ml.NumberCell(float64(r.Previous)),
		"poutcome":  ml.StringCell(string(r.Poutcome)),
	}
}

var ErrIncompleteRow = errors.New("row is missing a value")

// FromCells builds a record from a dataset row, checking enums and numeric
// types the same way JSON decoding does.
func FromCells(row map[string]ml.Cell) (Record, error) {
	var (
		r   Record
		err error
	)
	if r.Age, err = intCell(row, "age"); err != nil {
		return Record{}, err
	}
	if r.Job, err = enumCell(row, "job", Jobs); err != nil {
		return Record{}, err
	}
	if r.Marital, err = enumCell(row, "marital", MaritalStatuses); err != nil {
		return Record{}, err
	}
	if r.Education, err = enumCell(row, "education", EducationLevels); err != nil {
		return Record{}, err
	}
	if r.Default, err = enumCell(row, "default", YesNoValues); err != nil {
		return Record{}, err
	}
	if r.Balance, err = numberCell(row, "balance"); err != nil {
		return Record{}, err
	}
	if r.Housing, err = enumCell(row, "housing", YesNoValues); err != nil {
		return Record{}, err
	}
	if r.Loan, err = enumCell(row, "loan", YesNoValues); err != nil {
		return Record{}, err
	}
	if r.Contact, err = enumCell(row, "contact", Contacts); err != nil {
		return Record{}, err
	}
	if r.Day, err = intCell(row, "day"); err != nil {
		return Record{}, err
	}
	if r.Month, err = enumCell(row, "month", Months); err != nil {
		return Record{}, err
	}
	if r.Duration, err = intCell(row, "duration"); err != nil {
		return Record{}, err
	}
	if r.Campaign, err = intCell(row, "campaign"); err != nil {
		return Record{}, err
	}
	if r.Pdays, err = intCell(row, "pdays"); err != nil {
		return Record{}, err
	}
	if r.Previous, err = intCell(row, "previous"); err != nil {
		return Record{}, err
	}
	if r.Poutcome, err = enumCell(row, "poutcome", Poutcomes); err != nil {
		return Record{}, err
	}
	return r, nil
}

func numberCell(row map[string]ml.Cell, name string) (float64, error) {
	c, ok := row[name]
	if !ok || c.Kind != ml.KindNumber {
		return 0, fmt.Errorf("%s: %w", name, ErrIncompleteRow)
	}
	return c.Num, nil
}

func intCell(row map[string]ml.Cell, name string) (int, error) {
	v, err := numberCell(row, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s: %v is not an integer", name, v)
	}
	return int(v), nil
}

func enumCell[T ~string](row map[string]ml.Cell, name string, allowed []T) (T, error) {
	c, ok := row[name]
	if !ok || c.Kind != ml.KindString {
		return "", fmt.Errorf("%s: %w", name, ErrIncompleteRow)
	}
	return parseEnum(name, c.Str, allowed)
}

package model

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

type savedParam struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Save writes the parameter values of m to w with encoding/gob.
func Save(w io.Writer, m Model) error {
	params := m.Params()
	out := make([]savedParam, len(params))
	for i, p := range params {
		r, c := p.Value.Dims()
		out[i] = savedParam{Name: p.Name, Rows: r, Cols: c, Data: append([]float64(nil), p.Value.RawMatrix().Data...)}
	}
	if err := gob.NewEncoder(w).Encode(out); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return nil
}

// Load restores parameters written by Save into m. Names and shapes must
// match exactly.
func Load(r io.Reader, m Model) error {
	var in []savedParam
	if err := gob.NewDecoder(r).Decode(&in); err != nil {
		return errors.Wrap(err, "decode checkpoint")
	}
	params := m.Params()
	if len(in) != len(params) {
		return errors.Errorf("checkpoint has %d params, model has %d", len(in), len(params))
	}
	for i, p := range params {
		rows, cols := p.Value.Dims()
		s := in[i]
		if s.Name != p.Name || s.Rows != rows || s.Cols != cols || len(s.Data) != rows*cols {
			return errors.Errorf("checkpoint param %q (%dx%d) does not match %q (%dx%d)", s.Name, s.Rows, s.Cols, p.Name, rows, cols)
		}
	}
	for i, p := range params {
		copy(p.Value.RawMatrix().Data, in[i].Data)
	}
	return nil
}

package trdb

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"VALID", "ADDRESS", "INSN", "PRIVILEGE", "EXCEPTION", "ECAUSE", "TVAL", "INTERRUPT"}

// ReadCSV parses the instruction-stream CSV format of spec.md §6: a
// fixed header row, then one row per retirement, integer fields in
// hex except valid/exception/interrupt which are decimal 0/1.
// Compressed is derived from the low two bits of INSN, the same rule
// the original's reverse-order CSV path uses, since this header
// carries no COMPRESSED column.
func ReadCSV(r io.Reader) ([]Instruction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, newError(BadCsvHeader, "reading CSV header", err)
	}
	for i, want := range csvHeader {
		if i >= len(header) || header[i] != want {
			return nil, newErrorf(BadCsvHeader, "expected column %q at index %d, got %q", want, i, header)
		}
	}

	var out []Instruction
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newError(ScanFile, "reading CSV row", err)
		}
		in, err := parseCSVRow(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func parseCSVRow(rec []string) (Instruction, error) {
	var in Instruction
	valid, err := strconv.ParseUint(rec[0], 10, 1)
	if err != nil {
		return in, newError(ScanFile, "parsing VALID", err)
	}
	in.Valid = valid != 0

	addr, err := strconv.ParseUint(rec[1], 16, 64)
	if err != nil {
		return in, newError(ScanFile, "parsing ADDRESS", err)
	}
	in.Iaddr = addr

	insn, err := strconv.ParseUint(rec[2], 16, 64)
	if err != nil {
		return in, newError(ScanFile, "parsing INSN", err)
	}
	in.Instr = insn
	in.Compressed = insn&3 != 3

	priv, err := strconv.ParseUint(rec[3], 16, 8)
	if err != nil {
		return in, newError(ScanFile, "parsing PRIVILEGE", err)
	}
	in.Priv = uint8(priv)

	exc, err := strconv.ParseUint(rec[4], 10, 1)
	if err != nil {
		return in, newError(ScanFile, "parsing EXCEPTION", err)
	}
	in.Exception = exc != 0

	cause, err := strconv.ParseUint(rec[5], 16, 32)
	if err != nil {
		return in, newError(ScanFile, "parsing ECAUSE", err)
	}
	in.Cause = uint32(cause)

	tval, err := strconv.ParseUint(rec[6], 16, 64)
	if err != nil {
		return in, newError(ScanFile, "parsing TVAL", err)
	}
	in.Tval = tval

	interrupt, err := strconv.ParseUint(rec[7], 10, 1)
	if err != nil {
		return in, newError(ScanFile, "parsing INTERRUPT", err)
	}
	in.Interrupt = interrupt != 0

	return in, nil
}

// WriteCSV serializes instrs in the same format ReadCSV accepts.
func WriteCSV(w io.Writer, instrs []Instruction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return newError(FileWrite, "writing CSV header", err)
	}
	for _, in := range instrs {
		rec := []string{
			boolDigit(in.Valid),
			fmt.Sprintf("%x", in.Iaddr),
			fmt.Sprintf("%x", in.Instr),
			fmt.Sprintf("%x", in.Priv),
			boolDigit(in.Exception),
			fmt.Sprintf("%x", in.Cause),
			fmt.Sprintf("%x", in.Tval),
			boolDigit(in.Interrupt),
		}
		if err := cw.Write(rec); err != nil {
			return newError(FileWrite, "writing CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return newError(FileWrite, "flushing CSV", err)
	}
	return nil
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

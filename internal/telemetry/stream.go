package telemetry

import "io"

// Writer appends records to a byte stream.
type Writer struct {
	w   io.Writer
	buf [RecordSize]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (tw *Writer) Write(rec Record) error {
	if _, err := rec.Encode(tw.buf[:]); err != nil {
		return err
	}
	_, err := tw.w.Write(tw.buf[:])
	return err
}

// Reader reads consecutive records from a byte stream.
type Reader struct {
	r   io.Reader
	buf [RecordSize]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read returns the next record, or io.EOF at a clean end of stream.
func (tr *Reader) Read() (Record, error) {
	if _, err := io.ReadFull(tr.r, tr.buf[:]); err != nil {
		return Record{}, err
	}
	return DecodeRecord(tr.buf[:])
}

// ReadAll decodes every remaining record.
func (tr *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := tr.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

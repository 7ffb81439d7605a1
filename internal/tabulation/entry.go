package tabulation

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// magic identifies the on-disk format; bump the digit on incompatible changes.
const magic = "VARBEAM-TABLES 1\n"

// maxHeaderSize bounds the JSON header so a damaged length prefix cannot
// trigger a huge allocation.
const maxHeaderSize = 1 << 20

// Section names, matching the three reuse files of an Angantyr initialization.
const (
	SectionMPI     = "mpi"
	SectionSasdMPI = "sasd.mpi"
	SectionSigFit  = "sigfit"
)

// Entry is one complete set of initialization tables. Entries returned by the
// cache are shared and must be treated as read-only.
type Entry struct {
	Fingerprint  string
	Spec         Spec
	MPITable     []byte
	SasdMPITable []byte
	SigFitTable  []byte
}

// NewEntry builds an entry for spec, computing its fingerprint.
func NewEntry(spec Spec, mpi, sasdMPI, sigFit []byte) *Entry {
	c := spec.Canonical()
	return &Entry{
		Fingerprint:  c.Fingerprint(),
		Spec:         c,
		MPITable:     nilIfEmpty(mpi),
		SasdMPITable: nilIfEmpty(sasdMPI),
		SigFitTable:  nilIfEmpty(sigFit),
	}
}

// empty tables decode as nil, so normalise on construction too
func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Spec = e.Spec.Canonical()
	c.MPITable = bytes.Clone(e.MPITable)
	c.SasdMPITable = bytes.Clone(e.SasdMPITable)
	c.SigFitTable = bytes.Clone(e.SigFitTable)
	return &c
}

// Equal reports whether both entries carry identical fingerprints and bytes.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Fingerprint == o.Fingerprint &&
		e.Spec.Fingerprint() == o.Spec.Fingerprint() &&
		bytes.Equal(e.MPITable, o.MPITable) &&
		bytes.Equal(e.SasdMPITable, o.SasdMPITable) &&
		bytes.Equal(e.SigFitTable, o.SigFitTable)
}

// Size is the total payload size in bytes.
func (e *Entry) Size() int {
	return len(e.MPITable) + len(e.SasdMPITable) + len(e.SigFitTable)
}

func (e *Entry) sections() []sectionData {
	return []sectionData{
		{SectionMPI, e.MPITable},
		{SectionSasdMPI, e.SasdMPITable},
		{SectionSigFit, e.SigFitTable},
	}
}

type sectionData struct {
	name string
	data []byte
}

type sectionHeader struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

type header struct {
	Fingerprint string          `json:"fingerprint"`
	Spec        Spec            `json:"spec"`
	Sections    []sectionHeader `json:"sections"`
}

// Encode serialises e as: magic line, 4-byte big-endian header length, JSON
// header, then the raw sections in header order.
func (e *Entry) Encode() ([]byte, error) {
	h := header{Fingerprint: e.Fingerprint, Spec: e.Spec.Canonical()}
	total := 0
	for _, s := range e.sections() {
		sum := sha256.Sum256(s.data)
		h.Sections = append(h.Sections, sectionHeader{
			Name:   s.name,
			Size:   len(s.data),
			SHA256: hex.EncodeToString(sum[:]),
		})
		total += len(s.data)
	}

	hdr, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(magic) + 4 + len(hdr) + total)
	buf.WriteString(magic)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(hdr)))
	buf.Write(hdr)
	for _, s := range e.sections() {
		buf.Write(s.data)
	}
	return buf.Bytes(), nil
}

// Decode parses and verifies an encoded entry. Any structural damage, checksum
// failure or fingerprint mismatch yields a *CorruptCacheError.
func Decode(data []byte) (*Entry, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, corrupt("bad magic", nil)
	}
	rest := data[len(magic):]
	if len(rest) < 4 {
		return nil, corrupt("truncated header length", nil)
	}
	n := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	if n > maxHeaderSize || int(n) > len(rest) {
		return nil, corrupt("header length out of range", nil)
	}

	var h header
	if err := json.Unmarshal(rest[:n], &h); err != nil {
		return nil, corrupt("unreadable header", err)
	}
	rest = rest[n:]

	if want := h.Spec.Fingerprint(); want != h.Fingerprint {
		return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: "fingerprint does not match spec"}
	}

	e := &Entry{Fingerprint: h.Fingerprint, Spec: h.Spec.Canonical()}
	targets := map[string]*[]byte{
		SectionMPI:     &e.MPITable,
		SectionSasdMPI: &e.SasdMPITable,
		SectionSigFit:  &e.SigFitTable,
	}
	if len(h.Sections) != len(targets) {
		return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: fmt.Sprintf("expected %d sections, found %d", len(targets), len(h.Sections))}
	}

	for _, s := range h.Sections {
		dst, ok := targets[s.Name]
		if !ok {
			return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: fmt.Sprintf("unknown section %q", s.Name)}
		}
		if s.Size < 0 || s.Size > len(rest) {
			return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: fmt.Sprintf("section %s truncated", s.Name)}
		}
		body := rest[:s.Size]
		rest = rest[s.Size:]

		sum := sha256.Sum256(body)
		if hex.EncodeToString(sum[:]) != s.SHA256 {
			return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: fmt.Sprintf("section %s checksum mismatch", s.Name)}
		}
		if len(body) > 0 {
			*dst = bytes.Clone(body)
		}
		delete(targets, s.Name)
	}
	if len(rest) != 0 {
		return nil, &CorruptCacheError{Fingerprint: h.Fingerprint, Reason: fmt.Sprintf("%d trailing bytes", len(rest))}
	}
	return e, nil
}

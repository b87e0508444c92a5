// Package contract composes the sale contract attached to a reservation and
// splits contract text back into typed blocks for the document renderers.
package contract

import (
	"fmt"
	"strings"
)

type BlockKind int

const (
	Body BlockKind = iota
	Heading
	SectionTitle
	Clause
	PartyLabel
	Blank
)

var kindNames = [...]string{
	Body:         "body",
	Heading:      "heading",
	SectionTitle: "section_title",
	Clause:       "clause",
	PartyLabel:   "party_label",
	Blank:        "blank",
}

func (k BlockKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
	return kindNames[k]
}

func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BlockKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = BlockKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown block kind %q", text)
}

type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// Document is a composed contract. It is derived data and lives only as long
// as the reservation session that produced it.
type Document struct {
	PaymentID int64   `json:"payment_id"`
	Blocks    []Block `json:"blocks"`
}

// Text joins block texts with newlines.
func (d Document) Text() string {
	lines := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		lines[i] = b.Text
	}
	return strings.Join(lines, "\n")
}

// FileName is the download name of the Word rendition.
func (d Document) FileName() string {
	return FileName(d.PaymentID, "docx")
}

func FileName(paymentID int64, ext string) string {
	return fmt.Sprintf("contract_%d.%s", paymentID, ext)
}

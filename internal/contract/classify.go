package contract

import (
	"regexp"
	"strings"
)

// TitleMarker opens the contract heading line.
const TitleMarker = "SHARTNOMA №"

var (
	sectionPattern = regexp.MustCompile(`^[IVXLC]+\.\s`)
	clausePattern  = regexp.MustCompile(`^(\d+\.|[a-z]\))`)

	partyLabels = []string{"IJROCHI:", "MIJOZ:", "KAFIL:"}
)

// Classify assigns a block kind to one line of contract text. The first
// matching rule wins: title marker, roman section number, clause number or
// letter, party label, blank, body.
func Classify(line string) BlockKind {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, TitleMarker):
		return Heading
	case sectionPattern.MatchString(trimmed):
		return SectionTitle
	case clausePattern.MatchString(trimmed):
		return Clause
	case hasPartyLabel(trimmed):
		return PartyLabel
	case trimmed == "":
		return Blank
	default:
		return Body
	}
}

func hasPartyLabel(line string) bool {
	for _, label := range partyLabels {
		if strings.HasPrefix(line, label) {
			return true
		}
	}
	return false
}

// Parse classifies every line of text. Line texts are kept verbatim.
func Parse(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	blocks := make([]Block, len(lines))
	for i, line := range lines {
		blocks[i] = Block{Kind: Classify(line), Text: line}
	}
	return blocks
}

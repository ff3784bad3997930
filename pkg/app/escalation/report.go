package escalation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/perspectron/perspectron/pkg/domain/moderation"
)

// Affordance symbols posted on every report, mapped 1:1 to terminal actions.
const (
	SymbolClear  = "✅"
	SymbolRemove = "🗑️"
	SymbolKick   = "👢"
	SymbolBan    = "🔨"
)

var affordanceSymbols = []string{SymbolClear, SymbolRemove, SymbolKick, SymbolBan}

var symbolActions = map[string]moderation.Action{
	SymbolClear:  moderation.ActionCleared,
	SymbolRemove: moderation.ActionRemoved,
	SymbolKick:   moderation.ActionKicked,
	SymbolBan:    moderation.ActionBanned,
}

// ActionForSymbol maps a reaction symbol to its terminal action.
// ActionNone means the symbol is not an affordance.
func ActionForSymbol(symbol string) moderation.Action {
	return symbolActions[symbol]
}

// The id/channel lines are the machine-parseable part of the report: when a
// report is not found in the index (e.g. after a restart with the memory
// repository) the reaction handler recovers the original message from them.
var (
	reportIDPattern      = regexp.MustCompile(`(?m)^id: (\d+)$`)
	reportChannelPattern = regexp.MustCompile(`(?m)^channel: (\S+)$`)
)

const scoreIndent = 18

// RenderReport produces the moderator-channel report text for a record.
func RenderReport(record *moderation.EscalationRecord) string {
	var b strings.Builder

	switch record.Reason {
	case moderation.ReasonReported:
		fmt.Fprintf(&b, "🚨 Report from <@%s>:\n", record.ReporterID)
	default:
		b.WriteString("🚨 Auto-flagged message:\n")
	}
	fmt.Fprintf(&b, "```%s```\n", record.TargetContent)

	if len(record.Verdict.Vector) > 0 {
		b.WriteString("```")
		for _, attr := range record.Verdict.Vector.Attributes() {
			name := string(attr)
			padding := scoreIndent - len(name)
			if padding < 1 {
				padding = 1
			}
			fmt.Fprintf(&b, "%s:%s%v\n", name, strings.Repeat(" ", padding), record.Verdict.Vector[attr])
		}
		b.WriteString("```\n")
	}

	if len(record.Verdict.MatchedPhrases) > 0 {
		fmt.Fprintf(&b, "blacklisted: %s\n", strings.Join(record.Verdict.MatchedPhrases, ", "))
	}

	fmt.Fprintf(&b, "id: %s\n", record.TargetMessageID)
	fmt.Fprintf(&b, "channel: %s\n", record.TargetChannelID)
	fmt.Fprintf(&b, "%s clear | %s remove | %s kick | %s ban", SymbolClear, SymbolRemove, SymbolKick, SymbolBan)

	return b.String()
}

// ParseReport extracts the reported message id and channel from a rendered
// report. ok is false when the text is not one of our reports.
//
// The quoted message content is rendered above the genuine id/channel lines
// and may itself contain lines shaped like them, so only the last occurrence
// of each is authoritative.
func ParseReport(text string) (messageID, channelID string, ok bool) {
	idMatches := reportIDPattern.FindAllStringSubmatch(text, -1)
	channelMatches := reportChannelPattern.FindAllStringSubmatch(text, -1)
	if len(idMatches) == 0 || len(channelMatches) == 0 {
		return "", "", false
	}
	return idMatches[len(idMatches)-1][1], channelMatches[len(channelMatches)-1][1], true
}

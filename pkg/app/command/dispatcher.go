package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/perspectron/perspectron/pkg/app/escalation"
	"github.com/perspectron/perspectron/pkg/app/policy"
	"github.com/perspectron/perspectron/pkg/app/regression"
	"github.com/perspectron/perspectron/pkg/domain"
	"github.com/perspectron/perspectron/pkg/domain/blacklist"
	"github.com/perspectron/perspectron/pkg/domain/chat"
	"github.com/perspectron/perspectron/pkg/domain/moderation"
	"github.com/perspectron/perspectron/pkg/infra/metrics"
	"github.com/perspectron/perspectron/pkg/infra/scoring"
)

var (
	reportPattern = regexp.MustCompile(`^!report\s+(\d+)`)
	evalPattern   = regexp.MustCompile(`(?s)^!eval\s+(.+)`)
	testPattern   = regexp.MustCompile(`^!test\s*$`)
	blPattern     = regexp.MustCompile(`(?s)^!bl\b(?:\s+(\S+))?(?:\s+(.+))?`)
)

const blUsage = "usage: !bl add <phrase> | !bl del <phrase> | !bl show"

// Dispatcher parses the in-band command language out of a message body and
// routes to the moderation subsystems. Dispatch reports whether the message
// was consumed as a command.
//
//go:generate mockery --name=Dispatcher --dir=. --output=./mocks --filename=dispatcher_mock.go --case=underscore --with-expecter
type Dispatcher interface {
	Dispatch(ctx context.Context, msg chat.Message) bool
}

type dispatcher struct {
	logger    *logrus.Logger
	transport chat.Transport
	scorer    scoring.Client
	evaluator policy.Evaluator
	store     blacklist.Store
	workflow  escalation.Workflow
	runner    regression.Runner
}

func NewDispatcher(
	logger *logrus.Logger,
	transport chat.Transport,
	scorer scoring.Client,
	evaluator policy.Evaluator,
	store blacklist.Store,
	workflow escalation.Workflow,
	runner regression.Runner,
) Dispatcher {
	return &dispatcher{
		logger:    logger,
		transport: transport,
		scorer:    scorer,
		evaluator: evaluator,
		store:     store,
		workflow:  workflow,
		runner:    runner,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, msg chat.Message) bool {
	switch {
	case reportPattern.MatchString(msg.Content):
		metrics.CommandsHandled.WithLabelValues("report").Inc()
		d.handleReport(ctx, msg, reportPattern.FindStringSubmatch(msg.Content)[1])
	case evalPattern.MatchString(msg.Content):
		metrics.CommandsHandled.WithLabelValues("eval").Inc()
		d.handleEval(ctx, msg, evalPattern.FindStringSubmatch(msg.Content)[1])
	case testPattern.MatchString(msg.Content):
		metrics.CommandsHandled.WithLabelValues("test").Inc()
		d.handleTest(ctx, msg)
	case blPattern.MatchString(msg.Content):
		metrics.CommandsHandled.WithLabelValues("bl").Inc()
		groups := blPattern.FindStringSubmatch(msg.Content)
		d.handleBlacklist(ctx, msg, groups[1], strings.TrimSpace(groups[2]))
	default:
		return false
	}
	return true
}

func (d *dispatcher) handleReport(ctx context.Context, msg chat.Message, targetID string) {
	target, err := d.transport.FetchMessage(ctx, msg.ChannelID, targetID)
	if err != nil {
		d.logger.WithError(err).WithField("message_id", targetID).Warn("reported message not found")
		d.reply(ctx, msg, fmt.Sprintf("could not find message %s in this channel", targetID))
		return
	}

	_, err = d.workflow.Open(ctx, *target, moderation.Verdict{}, moderation.ReasonReported, &msg)
	if err != nil && !errors.Is(err, domain.ErrSelfReport) {
		d.logger.WithError(err).Error("failed to open report")
		d.reply(ctx, msg, "failed to file the report, please try again")
	}
}

func (d *dispatcher) handleEval(ctx context.Context, msg chat.Message, text string) {
	vector, err := d.scorer.Score(ctx, text)
	if err != nil {
		d.logger.WithError(err).Error("eval scoring failed")
		d.reply(ctx, msg, "scoring request failed")
		return
	}

	matches, err := d.store.Matches(ctx, text)
	if err != nil {
		d.logger.WithError(err).Error("eval blacklist match failed")
		matches = nil
	}

	verdict, err := d.evaluator.Evaluate(vector, matches)
	if err != nil {
		d.logger.WithError(err).Error("eval policy evaluation failed")
		d.reply(ctx, msg, "evaluation failed: "+err.Error())
		return
	}

	d.reply(ctx, msg, renderEval(verdict))
}

func (d *dispatcher) handleTest(ctx context.Context, msg chat.Message) {
	summary, err := d.runner.Run(ctx)
	if err != nil {
		d.logger.WithError(err).Error("regression run failed")
		d.reply(ctx, msg, "regression run failed: "+err.Error())
		return
	}
	d.reply(ctx, msg, summary.Render())
}

func (d *dispatcher) handleBlacklist(ctx context.Context, msg chat.Message, sub, phrase string) {
	switch sub {
	case "add":
		if phrase == "" {
			d.reply(ctx, msg, blUsage)
			return
		}
		added, err := d.store.Add(ctx, phrase)
		if err != nil {
			d.logger.WithError(err).Error("blacklist add failed")
			d.reply(ctx, msg, "failed to update the blacklist")
			return
		}
		if !added {
			d.reply(ctx, msg, fmt.Sprintf("%q is already blacklisted", phrase))
			return
		}
		d.reply(ctx, msg, fmt.Sprintf("added %q to the blacklist", phrase))
	case "del":
		if phrase == "" {
			d.reply(ctx, msg, blUsage)
			return
		}
		removed, err := d.store.Remove(ctx, phrase)
		if err != nil {
			d.logger.WithError(err).Error("blacklist remove failed")
			d.reply(ctx, msg, "failed to update the blacklist")
			return
		}
		if !removed {
			d.reply(ctx, msg, fmt.Sprintf("%q is not on the blacklist", phrase))
			return
		}
		d.reply(ctx, msg, fmt.Sprintf("removed %q from the blacklist", phrase))
	case "show":
		phrases, err := d.store.List(ctx)
		if err != nil {
			d.logger.WithError(err).Error("blacklist list failed")
			d.reply(ctx, msg, "failed to read the blacklist")
			return
		}
		if len(phrases) == 0 {
			d.reply(ctx, msg, "the blacklist is empty")
			return
		}
		d.reply(ctx, msg, "blacklist:\n"+strings.Join(phrases, "\n"))
	default:
		d.logger.WithField("subcommand", sub).Debug(domain.ErrUnknownCommand.Error())
		d.reply(ctx, msg, blUsage)
	}
}

func (d *dispatcher) reply(ctx context.Context, msg chat.Message, text string) {
	if _, err := d.transport.SendMessage(ctx, msg.ChannelID, text); err != nil {
		d.logger.WithError(err).Error("failed to send command reply")
	}
}

const scoreIndent = 18

func renderEval(verdict moderation.Verdict) string {
	var b strings.Builder
	if verdict.Flagged {
		b.WriteString("flagged\n")
	} else {
		b.WriteString("not flagged\n")
	}
	b.WriteString("```")
	for _, attr := range verdict.Vector.Attributes() {
		name := string(attr)
		padding := scoreIndent - len(name)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(&b, "%s:%s%v\n", name, strings.Repeat(" ", padding), verdict.Vector[attr])
	}
	b.WriteString("```")
	if len(verdict.MatchedPhrases) > 0 {
		b.WriteString("\nblacklisted: " + strings.Join(verdict.MatchedPhrases, ", "))
	}
	return b.String()
}

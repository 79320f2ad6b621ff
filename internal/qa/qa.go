// Package qa is the quality gate for generated copy. It combines fixed
// rule-based findings with a model score; rule findings are always kept
// and always cost a fixed penalty, whatever the model says.
package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
	"autopilot/internal/stage"
)

// Penalty is subtracted from the model score when any rule flag fired.
const Penalty = 0.15

// maxExclamations is the spam threshold over the whole serialized bundle.
const maxExclamations = 6

// SpamFlag is emitted when the bundle has too many exclamation marks.
const SpamFlag = "Too many exclamation marks (spammy tone)."

var riskyPatterns = []string{
	`\bcure\b`,
	`\bdiagnos(e|is)\b`,
	`\bguarantee\b`,
	`\bimprove patient outcomes\b`,
	`\bmedical advice\b`,
	`\breplaces (your|the) clinician\b`,
}

type riskRule struct {
	re   *regexp.Regexp
	flag string
}

var riskRules = func() []riskRule {
	out := make([]riskRule, len(riskyPatterns))
	for i, p := range riskyPatterns {
		out[i] = riskRule{re: regexp.MustCompile(`(?i)` + p), flag: fmt.Sprintf("Risky phrase detected: /%s/", p)}
	}
	return out
}()

// RuleFlags runs the rule-based detectors over the serialized bundle.
// Output order follows the pattern list, spam flag last.
func RuleFlags(messages artifact.MessagesBundle) []string {
	blob, err := json.Marshal(messages)
	if err != nil {
		return nil
	}
	var flags []string
	for _, r := range riskRules {
		if r.re.Match(blob) {
			flags = append(flags, r.flag)
		}
	}
	if strings.Count(string(blob), "!") > maxExclamations {
		flags = append(flags, SpamFlag)
	}
	return flags
}

// Merge combines the model verdict with rule flags: model flags first,
// then rule flags, duplicates removed keeping the first occurrence. The
// score loses Penalty (floored at zero) when any rule flag is present.
// Merge is pure, so re-scoring the same inputs yields the same result.
func Merge(aiScore float64, aiFlags, ruleFlags []string) (float64, []string) {
	flags := dedupe(append(append([]string{}, aiFlags...), ruleFlags...))
	score := aiScore
	if len(ruleFlags) > 0 {
		score -= Penalty
		if score < 0 {
			score = 0
		}
	}
	return score, flags
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Gate scores bundles with a model.
type Gate struct {
	Client llm.Client
}

// Evaluate scores one bundle. The returned gate has Regenerations zero;
// the caller owns the attempt counter.
func (g Gate) Evaluate(ctx context.Context, p stage.Profile, wedgeName string, messages artifact.MessagesBundle) (artifact.QAGate, error) {
	rules := RuleFlags(messages)
	verdict, err := stage.Score(ctx, g.Client, p, wedgeName, messages, rules)
	if err != nil {
		return artifact.QAGate{}, err
	}
	score, flags := Merge(verdict.Score, verdict.Flags, rules)
	return artifact.QAGate{Score: score, Flags: flags}, nil
}

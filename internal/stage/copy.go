package stage

import (
	"context"

	"autopilot/internal/artifact"
	"autopilot/internal/llm"
)

// CopyInput is everything the copywriter sees. Regeneration reuses the
// same value so every attempt is generated from identical inputs.
type CopyInput struct {
	Goal      string
	WedgeName string
	Trigger   string
	Sequence  []artifact.FlowStep
}

type copyConstraints struct {
	VariantsPerChannel int `json:"variants_per_channel"`
	SMSMaxChars        int `json:"sms_max_chars"`
	InAppMaxChars      int `json:"in_app_max_chars"`
}

type copyContext struct {
	Goal        string              `json:"goal"`
	WedgeName   string              `json:"wedge_name"`
	Trigger     string              `json:"trigger"`
	Sequence    []artifact.FlowStep `json:"sequence"`
	Constraints copyConstraints     `json:"constraints"`
}

// Fallback values used when the model leaves fields out.
const (
	fallbackTone = "clear"
	fallbackCTA  = "Take the next step"
	fallbackText = "Quick nudge to keep care moving."
)

type channelFallback struct {
	titleSuffix string
	notes       string
}

var copyFallbacks = map[string]channelFallback{
	artifact.ChannelEmail: {"activation email", "Brief email to prompt next action."},
	artifact.ChannelSMS:   {"quick SMS", "Short SMS reminder; under 240 characters."},
	artifact.ChannelInApp: {"in-app nudge", "Concise in-app card; under 280 characters."},
}

// Copy generates a complete MessagesBundle.
func Copy(ctx context.Context, client llm.Client, p Profile, in CopyInput) (artifact.MessagesBundle, error) {
	req := copyContext{
		Goal:      in.Goal,
		WedgeName: in.WedgeName,
		Trigger:   in.Trigger,
		Sequence:  in.Sequence,
		Constraints: copyConstraints{
			VariantsPerChannel: 3,
			SMSMaxChars:        240,
			InAppMaxChars:      280,
		},
	}
	var data raw
	if err := call(ctx, client, NameCopy, p, copySystem, req, &data); err != nil {
		return artifact.MessagesBundle{}, err
	}

	bundle := NormalizeMessages(data, in.WedgeName)
	if err := bundle.Validate(); err != nil {
		return artifact.MessagesBundle{}, fail(NameCopy, KindValidation, err)
	}
	return bundle, nil
}

// NormalizeMessages repairs a loosely shaped copy reply:
//   - every channel key exists; a non-object channel counts as empty
//   - a non-list variants value becomes an empty list
//   - non-object variants and variants with no text are dropped
//   - missing tone and cta default to "clear" and "Take the next step"
//   - at most MaxVariants variants are kept, in reply order
//   - missing title and notes get per-channel fallback text
//   - an empty variant list gets one fallback variant
func NormalizeMessages(data raw, wedgeName string) artifact.MessagesBundle {
	var b artifact.MessagesBundle
	for _, ch := range artifact.Channels {
		pack, _ := b.Pack(ch)
		*pack = normalizePack(data[ch], wedgeName, copyFallbacks[ch])
	}
	return b
}

func normalizePack(v any, wedgeName string, fb channelFallback) artifact.ChannelMessagePack {
	m, _ := v.(raw)
	pack := artifact.ChannelMessagePack{
		Title: strOr(m, "title", wedgeName+" - "+fb.titleSuffix),
		Notes: strOr(m, "notes", fb.notes),
	}
	for _, e := range objects(m["variants"]) {
		text, ok := str(e["text"])
		if !ok {
			continue
		}
		pack.Variants = append(pack.Variants, artifact.MessageVariant{
			Tone: strOr(e, "tone", fallbackTone),
			CTA:  strOr(e, "cta", fallbackCTA),
			Text: text,
		})
		if len(pack.Variants) == artifact.MaxVariants {
			break
		}
	}
	if len(pack.Variants) == 0 {
		pack.Variants = []artifact.MessageVariant{{Tone: fallbackTone, CTA: fallbackCTA, Text: fallbackText}}
	}
	return pack
}
